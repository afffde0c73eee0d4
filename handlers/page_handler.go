package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
)

func GetIndex(c *fiber.Ctx) error {
	if _, ok := middleware.SessionUserID(c); ok {
		return c.Redirect("/chat")
	}
	return c.Render("index", fiber.Map{})
}

func GetLogin(c *fiber.Ctx) error {
	var msg string
	switch c.Query("status") {
	case "verified":
		msg = "Email verified successfully. You can now log in."
	case "password_reset_success":
		msg = "Password has been reset successfully. Please log in."
	}
	return c.Render("login", fiber.Map{"Msg": msg})
}

func GetRegister(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{})
}

func GetVerify(c *fiber.Ctx) error {
	return c.Render("verify", fiber.Map{"Email": c.Query("email")})
}

func GetOTPLogin(c *fiber.Ctx) error {
	return c.Render("otp-login", fiber.Map{"Email": c.Query("email")})
}

func GetForgot(c *fiber.Ctx) error {
	return c.Render("forgot", fiber.Map{})
}

// GetReset checks the token before showing the form so a dead link fails
// early instead of after the user types a new password.
func GetReset(c *fiber.Ctx) error {
	token := c.Params("token")

	var user models.User
	err := database.DB.Where("reset_password_token = ? AND reset_password_expires_at > ?", token, time.Now()).First(&user).Error
	if err != nil {
		return c.Render("forgot", fiber.Map{"Msg": "Password reset token is invalid or has expired."})
	}

	return c.Render("reset", fiber.Map{"Token": token})
}

func GetChatPage(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	return c.Render("chat", fiber.Map{"Identity": identity})
}
