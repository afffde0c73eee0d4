package routes

import (
	"github.com/coatcard/coatcard-ai/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/register", handlers.RegisterUser)
	auth.Post("/verify", handlers.VerifyOTP)
	auth.Post("/resend-otp", handlers.ResendOTP)
	auth.Post("/login", handlers.LoginUser)
	auth.Post("/request-otp-login", handlers.RequestOTPLogin)
	auth.Post("/otp-login", handlers.OTPLogin)
	auth.Get("/logout", handlers.Logout)
	auth.Post("/forgot", handlers.ForgotPassword)
	auth.Post("/reset/:token", handlers.ResetPassword)
}
