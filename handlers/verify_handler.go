package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
	"github.com/coatcard/coatcard-ai/notifications"
	"github.com/coatcard/coatcard-ai/utils"
)

func VerifyOTP(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	otp := c.FormValue("otp")

	var user models.User
	err := database.DB.Where("email = ?", email).First(&user).Error
	if err != nil || user.OTP == nil {
		return c.Render("verify", fiber.Map{"Email": email, "Msg": "Verification failed. Please request a new OTP."})
	}
	if user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		return c.Render("verify", fiber.Map{"Email": email, "Msg": "Your OTP has expired. Please request a new one."})
	}
	if !utils.SecureCompare(otp, *user.OTP) {
		return c.Render("verify", fiber.Map{"Email": email, "Msg": "The OTP you entered is incorrect."})
	}

	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"is_verified":    true,
		"otp":            nil,
		"otp_expires_at": nil,
	}).Error; err != nil {
		return c.Render("verify", fiber.Map{"Email": email, "Msg": "An error occurred. Please try again."})
	}

	return c.Redirect("/login?status=verified")
}

func ResendOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse request."})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found."})
	}
	if user.IsVerified {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Account is already verified."})
	}

	otp, err := issueOTP(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "An error occurred while resending OTP."})
	}

	notifications.SendEmail(user.Username, user.Email, "New Verification Code",
		fmt.Sprintf("<p>Your new verification code is %s.</p>", otp))
	return c.JSON(fiber.Map{"message": "A new OTP has been sent to your email."})
}

// RequestOTPLogin answers identically whether or not the account exists, so
// the endpoint cannot be used to enumerate accounts. Only verified accounts
// actually receive a code.
func RequestOTPLogin(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err == nil && user.IsVerified {
		if otp, otpErr := issueOTP(&user); otpErr == nil {
			notifications.SendEmail(user.Username, user.Email, "Your Login Code",
				fmt.Sprintf("<p>Your login code is %s.</p>", otp))
		}
	}

	return c.Redirect("/otp-login?email=" + url.QueryEscape(email))
}

func OTPLogin(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	otp := c.FormValue("otp")

	var user models.User
	err := database.DB.Where("email = ?", email).First(&user).Error
	if err != nil || user.OTP == nil {
		return c.Render("otp-login", fiber.Map{"Email": email, "Msg": "Login failed. Please request a new OTP."})
	}
	if user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		return c.Render("otp-login", fiber.Map{"Email": email, "Msg": "Your OTP has expired. Please request a new one."})
	}
	if !utils.SecureCompare(otp, *user.OTP) {
		return c.Render("otp-login", fiber.Map{"Email": email, "Msg": "The OTP you entered is incorrect."})
	}

	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"otp":            nil,
		"otp_expires_at": nil,
	}).Error; err != nil {
		return c.Render("otp-login", fiber.Map{"Email": email, "Msg": "An error occurred. Please try again."})
	}

	if err := middleware.IssueSession(c, user.ID); err != nil {
		return c.Render("otp-login", fiber.Map{"Email": email, "Msg": "An error occurred. Please try again."})
	}
	return c.Redirect("/chat")
}
