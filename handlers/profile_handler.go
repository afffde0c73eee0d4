package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
)

type UpdateProfileRequest struct {
	Username         string `validate:"required,min=3,max=30"`
	Language         string `validate:"required"`
	ExplanationStyle string `validate:"required,oneof=bullet paragraph step-by-step"`
}

func GetProfile(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", identity.ID).Error; err != nil {
		middleware.DestroySession(c)
		return c.Redirect("/login")
	}

	return c.Render("profile", fiber.Map{"User": &user})
}

func UpdateProfile(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", identity.ID).Error; err != nil {
		middleware.DestroySession(c)
		return c.Redirect("/login")
	}

	req := UpdateProfileRequest{
		Username:         strings.TrimSpace(c.FormValue("username")),
		Language:         strings.TrimSpace(c.FormValue("language")),
		ExplanationStyle: c.FormValue("explanationStyle"),
	}
	if err := validate.Struct(req); err != nil {
		return c.Render("profile", fiber.Map{"User": &user, "Msg": "Please fill in all fields correctly.", "MsgType": "error"})
	}

	avatar, avatarType, err := readProfileImage(c)
	if err != nil {
		return c.Render("profile", fiber.Map{"User": &user, "Msg": fmt.Sprintf("File Upload Error: %v", err), "MsgType": "error"})
	}

	user.Username = req.Username
	user.Language = req.Language
	user.ExplanationStyle = req.ExplanationStyle
	if avatar != nil {
		user.Avatar = avatar
		user.AvatarType = avatarType
	}

	if err := database.DB.Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Render("profile", fiber.Map{"User": &user, "Msg": "That username is already taken.", "MsgType": "error"})
		}
		return c.Render("profile", fiber.Map{"User": &user, "Msg": "Database error. Please try again.", "MsgType": "error"})
	}

	return c.Render("profile", fiber.Map{"User": &user, "Msg": "Profile updated successfully!", "MsgType": "success"})
}

// GetAvatar streams the stored avatar blob with its original MIME type.
func GetAvatar(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", identity.ID).Error; err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	if !user.HasAvatar() {
		return c.SendStatus(fiber.StatusNotFound)
	}

	c.Set(fiber.HeaderContentType, user.AvatarType)
	return c.Send(user.Avatar)
}
