package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

const MaxMessageChars = 2000

// ValidateMessages checks a conversation before it reaches retrieval. The
// last message must come from the user.
func ValidateMessages(msgs []model.ChatMessage) error {
	if len(msgs) == 0 {
		return fmt.Errorf("messages are empty: %w", appErr.ErrInvalid)
	}
	for i, msg := range msgs {
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			return fmt.Errorf("message %d has role %q: %w", i, msg.Role, appErr.ErrInvalid)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("message %d is empty: %w", i, appErr.ErrInvalid)
		}
		if utf8.RuneCountInString(msg.Content) > MaxMessageChars {
			return fmt.Errorf("message %d exceeds %d characters: %w", i, MaxMessageChars, appErr.ErrInvalid)
		}
		if strings.ContainsRune(msg.Content, 0) {
			return fmt.Errorf("message %d contains a null byte: %w", i, appErr.ErrInvalid)
		}
	}
	if msgs[len(msgs)-1].Role != model.RoleUser {
		return fmt.Errorf("last message is not from the user: %w", appErr.ErrInvalid)
	}
	return nil
}
