package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/errcode"
	"github.com/xxxsen/notebookrag/internal/pkg/response"
	"github.com/xxxsen/notebookrag/internal/service"
)

const opChat = "chat"

// RetrievalTuning is the per path retrieval breadth.
type RetrievalTuning struct {
	TopK      int
	Threshold float64
}

type ChatHandler struct {
	gate  *access.Gate
	chats *service.ChatService
	owner RetrievalTuning
	share RetrievalTuning
}

func NewChatHandler(gate *access.Gate, chats *service.ChatService, owner, share RetrievalTuning) *ChatHandler {
	return &ChatHandler{gate: gate, chats: chats, owner: owner, share: share}
}

type chatRequest struct {
	Messages     []model.ChatMessage `json:"messages"`
	CollectionID string              `json:"collectionId"`
}

type sharedChatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

func (h *ChatHandler) OwnerChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	userID := getUserID(c)
	policy := service.Policy{
		Name: "owner",
		Resolve: func(ctx context.Context) (*access.Scope, error) {
			return h.gate.ResolveOwner(ctx, userID, req.CollectionID, opChat)
		},
		TopK:                  h.owner.TopK,
		Threshold:             h.owner.Threshold,
		DegradeOnEmbedFailure: true,
	}
	h.answer(c, policy, req.Messages)
}

func (h *ChatHandler) SharedChat(c *gin.Context) {
	var req sharedChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	token := c.Param("token")
	clientAddr := c.ClientIP()
	policy := service.Policy{
		Name: "share",
		Resolve: func(ctx context.Context) (*access.Scope, error) {
			return h.gate.ResolveShare(ctx, token, clientAddr, opChat)
		},
		TopK:      h.share.TopK,
		Threshold: h.share.Threshold,
	}
	h.answer(c, policy, req.Messages)
}

func (h *ChatHandler) answer(c *gin.Context, policy service.Policy, msgs []model.ChatMessage) {
	events, err := h.chats.Answer(c.Request.Context(), policy, msgs)
	if err != nil {
		handleError(c, err)
		return
	}
	writeEventStream(c, events)
}
