package routes

import (
	"github.com/coatcard/coatcard-ai/handlers"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/gofiber/fiber/v2"
)

func PageRoutes(app *fiber.App) {
	app.Get("/", handlers.GetIndex)
	app.Get("/login", handlers.GetLogin)
	app.Get("/register", handlers.GetRegister)
	app.Get("/verify", handlers.GetVerify)
	app.Get("/otp-login", handlers.GetOTPLogin)
	app.Get("/forgot", handlers.GetForgot)
	app.Get("/reset/:token", handlers.GetReset)
	app.Get("/chat", middleware.Protected(), middleware.LoadIdentity(), handlers.GetChatPage)
}
