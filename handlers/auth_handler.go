package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	config "github.com/coatcard/coatcard-ai/configs"
	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
	"github.com/coatcard/coatcard-ai/notifications"
	"github.com/coatcard/coatcard-ai/utils"
)

var validate = validator.New()

// Shown for both unknown email and wrong password so the two are
// indistinguishable to a caller.
const invalidCredentialsMsg = "Invalid credentials"

const resetGenericMsg = "If an account with that email exists, a password reset link has been sent."

type RegisterRequest struct {
	Username    string `validate:"required,min=3,max=30"`
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6"`
	Role        string `validate:"required,oneof=learner educator admin"`
	FieldOfWork string `validate:"required"`
	Goal        string `validate:"required"`
}

type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func RegisterUser(c *fiber.Ctx) error {
	req := RegisterRequest{
		Username:    strings.TrimSpace(c.FormValue("username")),
		Email:       strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		Password:    c.FormValue("password"),
		Role:        c.FormValue("role"),
		FieldOfWork: strings.TrimSpace(c.FormValue("fieldOfWork")),
		Goal:        strings.TrimSpace(c.FormValue("goal")),
	}
	if err := validate.Struct(req); err != nil {
		return c.Render("register", fiber.Map{"Msg": "Please fill in all fields correctly."})
	}

	avatar, avatarType, err := readProfileImage(c)
	if err != nil {
		return c.Render("register", fiber.Map{"Msg": fmt.Sprintf("File Upload Error: %v", err)})
	}

	var existing models.User
	err = database.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		if existing.IsVerified {
			return c.Render("register", fiber.Map{"Msg": "This email is already registered and verified. Please log in."})
		}

		otp, otpErr := issueOTP(&existing)
		if otpErr != nil {
			return c.Render("register", fiber.Map{"Msg": "Database error. Please try again."})
		}
		notifications.SendEmail(existing.Username, existing.Email, "Verify Your Email Address",
			fmt.Sprintf("<p>Here is your new verification code: %s.</p>", otp))
		return c.Redirect("/verify?email=" + url.QueryEscape(existing.Email))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Render("register", fiber.Map{"Msg": "Database error. Please try again."})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Render("register", fiber.Map{"Msg": "Database error. Please try again."})
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return c.Render("register", fiber.Map{"Msg": "Database error. Please try again."})
	}
	otpExpires := time.Now().Add(models.OTPValidity)

	newUser := models.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     string(hashedPassword),
		Role:         req.Role,
		FieldOfWork:  req.FieldOfWork,
		Goal:         req.Goal,
		Avatar:       avatar,
		AvatarType:   avatarType,
		OTP:          &otp,
		OTPExpiresAt: &otpExpires,
	}
	if err := database.DB.Create(&newUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Render("register", fiber.Map{"Msg": "That username is already taken."})
		}
		return c.Render("register", fiber.Map{"Msg": "Database error. Please try again."})
	}

	notifications.SendEmail(newUser.Username, newUser.Email, "Verify Your Email Address",
		fmt.Sprintf("<p>Your verification code is %s.</p>", otp))
	return c.Redirect("/verify?email=" + url.QueryEscape(newUser.Email))
}

func LoginUser(c *fiber.Ctx) error {
	req := LoginRequest{
		Email:    strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		Password: c.FormValue("password"),
	}
	if err := validate.Struct(req); err != nil {
		return c.Render("login", fiber.Map{"Msg": invalidCredentialsMsg, "Email": req.Email})
	}

	var user models.User
	err := database.DB.Where("email = ?", req.Email).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return c.Render("login", fiber.Map{"Msg": invalidCredentialsMsg, "Email": req.Email})
	}

	if !user.IsVerified {
		return c.Render("login", fiber.Map{
			"Msg":            "Please verify your email before logging in.",
			"ShowVerifyLink": true,
			"Email":          req.Email,
		})
	}

	if err := middleware.IssueSession(c, user.ID); err != nil {
		return c.Render("login", fiber.Map{"Msg": "Something went wrong. Please try again.", "Email": req.Email})
	}
	return c.Redirect("/chat")
}

func Logout(c *fiber.Ctx) error {
	middleware.DestroySession(c)
	return c.Redirect("/login")
}

func ForgotPassword(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return c.Render("forgot", fiber.Map{"Msg": resetGenericMsg})
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return c.Render("forgot", fiber.Map{"Msg": resetGenericMsg})
	}
	expires := time.Now().Add(models.ResetTokenValidity)

	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"reset_password_token":      token,
		"reset_password_expires_at": expires,
	}).Error; err != nil {
		return c.Render("forgot", fiber.Map{"Msg": resetGenericMsg})
	}

	resetLink := fmt.Sprintf("%s/reset/%s", config.ConfigOr("BASE_URL", "http://localhost:3000"), token)
	notifications.SendEmail(user.Username, user.Email, "Password Reset Request",
		fmt.Sprintf("<p>Click the link below to reset your password. This link is valid for 1 hour.</p><p><a href='%s'>Reset Password</a></p>", resetLink))

	return c.Render("forgot", fiber.Map{"Msg": resetGenericMsg})
}

func ResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")
	password := c.FormValue("password")
	confirmPassword := c.FormValue("confirmPassword")

	var user models.User
	err := database.DB.Where("reset_password_token = ? AND reset_password_expires_at > ?", token, time.Now()).First(&user).Error
	if err != nil {
		return c.Render("reset", fiber.Map{"Token": token, "Msg": "Password reset token is invalid or has expired."})
	}

	if password != confirmPassword {
		return c.Render("reset", fiber.Map{"Token": token, "Msg": "Passwords do not match."})
	}
	if len(password) < 6 {
		return c.Render("reset", fiber.Map{"Token": token, "Msg": "Password must be at least 6 characters long."})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return c.Render("reset", fiber.Map{"Token": token, "Msg": "Something went wrong. Please try again."})
	}

	if err := database.DB.Model(&user).Updates(map[string]interface{}{
		"password":                  string(hashedPassword),
		"reset_password_token":      nil,
		"reset_password_expires_at": nil,
	}).Error; err != nil {
		return c.Render("reset", fiber.Map{"Token": token, "Msg": "Something went wrong. Please try again."})
	}

	return c.Redirect("/login?status=password_reset_success")
}

// issueOTP stores a fresh code and expiry on the user, replacing any
// previous one.
func issueOTP(user *models.User) (string, error) {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(models.OTPValidity)
	if err := database.DB.Model(user).Updates(map[string]interface{}{
		"otp":            otp,
		"otp_expires_at": expires,
	}).Error; err != nil {
		return "", err
	}
	return otp, nil
}
