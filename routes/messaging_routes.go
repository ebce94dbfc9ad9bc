package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, limiter *middleware.RateLimiter) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetConversations)
	conversations.Get("/:counterpartId/messages", handlers.GetConversationMessages)
	conversations.Post("/:counterpartId/messages", middleware.RateLimit(limiter), handlers.SendMessage)
	conversations.Post("/:counterpartId/read", handlers.MarkConversationRead)

	messages := api.Group("/messages", middleware.Protected())
	messages.Get("/unread", handlers.GetUnreadCount)
	messages.Put("/:messageId", handlers.EditMessage)
	messages.Delete("/:messageId", handlers.DeleteMessage)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
