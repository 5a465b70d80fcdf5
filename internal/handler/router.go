package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/notebookrag/internal/middleware"
)

type RouterDeps struct {
	Chat      *ChatHandler
	Messages  *MessageHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/chat", deps.Chat.OwnerChat)
	authGroup.GET("/collections/:id/messages", deps.Messages.List)

	api.POST("/shared/:token/chat", deps.Chat.SharedChat)
}
