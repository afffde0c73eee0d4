package routes

import (
	"github.com/coatcard/coatcard-ai/handlers"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	profile := app.Group("/profile", middleware.Protected(), middleware.LoadIdentity())
	profile.Get("", handlers.GetProfile)
	profile.Post("", handlers.UpdateProfile)
	profile.Get("/avatar", handlers.GetAvatar)
}
