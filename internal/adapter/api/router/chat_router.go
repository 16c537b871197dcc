package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

// SetupChatRouter wires the conversation endpoints. Everything requires a
// verified account; peers are only ever addressed by handle.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)
	conversations.Use(authMiddleware.RequireVerifiedEmail)

	conversations.GET("", chatHandler.ListConversations)
	conversations.POST("", chatHandler.StartConversation)
	conversations.POST("/:id/open", chatHandler.OpenConversation)
	conversations.POST("/:id/close", chatHandler.CloseConversation)
	conversations.GET("/:id/messages", chatHandler.CurrentMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.POST("/:id/messages/:localId/retry", chatHandler.RetrySend)
	conversations.DELETE("/:id/messages/:localId", chatHandler.DiscardFailed)

	me := e.Group("/v1/me")
	me.Use(authMiddleware.Authenticate)
	me.Use(authMiddleware.RequireVerifiedEmail)

	me.GET("/handle", chatHandler.OwnHandle)
}
