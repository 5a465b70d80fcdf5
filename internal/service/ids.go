package service

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newToken returns 40 hex characters, inside the accepted share token band.
func newToken() string {
	bytes := make([]byte, 20)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
