package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/response"
	"github.com/xxxsen/notebookrag/internal/service"
)

const opMessages = "messages"

type MessageHandler struct {
	gate    *access.Gate
	history *service.HistoryService
}

func NewMessageHandler(gate *access.Gate, history *service.HistoryService) *MessageHandler {
	return &MessageHandler{gate: gate, history: history}
}

func (h *MessageHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	scope, err := h.gate.ResolveOwner(ctx, getUserID(c), c.Param("id"), opMessages)
	if err != nil {
		handleError(c, err)
		return
	}
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 32)
	offset, _ := strconv.ParseUint(c.Query("offset"), 10, 32)
	msgs, err := h.history.List(ctx, scope, uint(limit), uint(offset))
	if err != nil {
		handleError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	response.Success(c, gin.H{"messages": msgs})
}
