package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coatcard/coatcard-ai/ai"
	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
)

const aiCallTimeout = 60 * time.Second

type SendMessageRequest struct {
	ChatID  string        `json:"chatId" validate:"required"`
	History []models.Turn `json:"history" validate:"required,min=1"`
	// FirstMessage is accepted for compatibility with older clients but is
	// not trusted: title generation is keyed off the stored history instead.
	FirstMessage string `json:"firstMessage"`
}

func GetChats(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	var chats []models.Chat
	if err := database.DB.Where("user_id = ?", identity.ID).Order("updated_at desc").Find(&chats).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversations."})
	}
	return c.JSON(chats)
}

func GetChat(c *fiber.Ctx) error {
	chat, ok := ownedChat(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}
	return c.JSON(chat)
}

func CreateChat(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	chat := models.Chat{
		UserID: identity.ID,
		Title:  models.DefaultChatTitle,
	}
	if err := database.DB.Create(&chat).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create a new conversation."})
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

func SendMessage(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Chat history is required."})
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}
	var chat models.Chat
	if err := database.DB.Where("id = ? AND user_id = ?", chatID, identity.ID).First(&chat).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}

	if ai.Client == nil {
		log.Println("🔥 AI provider not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get response from AI."})
	}

	stored, err := chat.Turns()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong."})
	}
	isFirstMessage := len(stored) == 0

	ctx, cancel := context.WithTimeout(c.UserContext(), aiCallTimeout)
	defer cancel()

	// The persona turn is prepended for the provider only and never saved.
	systemPrompt := ai.SystemPrompt(identity.Role, identity.FieldOfWork, identity.Goal, identity.Language, identity.ExplanationStyle)
	payload := append([]models.Turn{systemPrompt}, req.History...)

	replyParts, err := ai.Client.GenerateReply(ctx, payload)
	if err != nil {
		log.Printf("🔥 AI request failed for chat %s: %v", chat.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get response from AI."})
	}

	newHistory := append(req.History, models.Turn{Role: models.RoleModel, Parts: replyParts})
	if err := chat.SetTurns(newHistory); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong."})
	}

	if isFirstMessage {
		if firstText, ok := firstUserText(req.History); ok {
			title, titleErr := ai.Client.GenerateTitle(ctx, firstText)
			if titleErr != nil {
				// A missing title is not a failed exchange.
				log.Printf("Title generation failed for chat %s: %v", chat.ID, titleErr)
			} else {
				chat.Title = title
			}
		}
	}

	if err := database.DB.Save(&chat).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save conversation."})
	}

	botResponse := fiber.Map{
		"candidates": []fiber.Map{
			{"content": fiber.Map{"role": models.RoleModel, "parts": replyParts}},
		},
	}
	return c.JSON(fiber.Map{"botResponse": botResponse, "updatedChat": chat})
}

func ClearChat(c *fiber.Ctx) error {
	chat, ok := ownedChat(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}

	chat.History = datatypes.JSON("[]")
	chat.Title = models.DefaultChatTitle
	if err := database.DB.Save(chat).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to clear chat history."})
	}

	return c.JSON(fiber.Map{"message": "Chat history cleared.", "chat": chat})
}

func DeleteChat(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}

	result := database.DB.Where("id = ? AND user_id = ?", chatID, identity.ID).Delete(&models.Chat{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete chat."})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found."})
	}

	return c.JSON(fiber.Map{"message": "Chat deleted successfully."})
}

// ownedChat loads the chat in :id scoped to the session user. Foreign and
// missing threads are indistinguishable to the caller.
func ownedChat(c *fiber.Ctx) (*models.Chat, bool) {
	identity := middleware.CurrentIdentity(c)

	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, false
	}

	var chat models.Chat
	if err := database.DB.Where("id = ? AND user_id = ?", chatID, identity.ID).First(&chat).Error; err != nil {
		return nil, false
	}
	return &chat, true
}

func firstUserText(history []models.Turn) (string, bool) {
	for _, turn := range history {
		if turn.Role == models.RoleUser && len(turn.Parts) > 0 && turn.Parts[0].Text != "" {
			return turn.Parts[0].Text, true
		}
	}
	return "", false
}
