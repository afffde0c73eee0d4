package routes

import (
	"github.com/coatcard/coatcard-ai/handlers"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/gofiber/fiber/v2"
)

func ChatRoutes(app *fiber.App) {
	api := app.Group("/api", middleware.Protected(), middleware.LoadIdentity())
	api.Get("/chats", handlers.GetChats)
	api.Post("/chat/new", handlers.CreateChat)
	api.Post("/chat/clear/:id", handlers.ClearChat)
	api.Post("/chat", handlers.SendMessage)
	api.Get("/chat/:id", handlers.GetChat)
	api.Delete("/chat/:id", handlers.DeleteChat)
}
