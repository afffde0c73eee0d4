package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/models"
)

func createChatForUser(t *testing.T, app *fiber.App, cookie *http.Cookie) models.Chat {
	t.Helper()
	resp := doJSON(t, app, fiber.MethodPost, "/api/chat/new", "", cookie)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var chat models.Chat
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &chat))
	return chat
}

func sendBody(chatID string, texts ...string) string {
	history := make([]models.Turn, 0, len(texts))
	for i, text := range texts {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.Turn{Role: role, Parts: []models.Part{{Text: text}}})
	}
	raw, _ := json.Marshal(fiber.Map{"chatId": chatID, "history": history})
	return string(raw)
}

func TestChatRoutesRequireAuth(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/chats", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListChats(t *testing.T) {
	app, _, _ := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")

	chat := createChatForUser(t, app, cookie)
	require.Equal(t, models.DefaultChatTitle, chat.Title)

	resp := doJSON(t, app, fiber.MethodGet, "/api/chats", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var chats []models.Chat
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &chats))
	require.Len(t, chats, 1)
	require.Equal(t, chat.ID, chats[0].ID)
}

func TestSendMessageAppendsModelTurnAndTitlesThread(t *testing.T) {
	app, _, provider := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	resp := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?"), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		BotResponse struct {
			Candidates []struct {
				Content struct {
					Role  string        `json:"role"`
					Parts []models.Part `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		} `json:"botResponse"`
		UpdatedChat models.Chat `json:"updatedChat"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &payload))

	require.Len(t, payload.BotResponse.Candidates, 1)
	require.Equal(t, models.RoleModel, payload.BotResponse.Candidates[0].Content.Role)
	require.Equal(t, "Here is your answer.", payload.BotResponse.Candidates[0].Content.Parts[0].Text)
	require.Equal(t, "Reversing Linked Lists", payload.UpdatedChat.Title)

	var stored models.Chat
	require.NoError(t, database.DB.First(&stored, "id = ?", chat.ID).Error)
	turns, err := stored.Turns()
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, models.RoleUser, turns[0].Role)
	require.Equal(t, models.RoleModel, turns[1].Role)
	require.Equal(t, "Reversing Linked Lists", stored.Title)

	// The provider saw the persona turn followed by the actual history.
	require.Len(t, provider.lastHistory, 2)
	require.Contains(t, provider.lastHistory[0].Parts[0].Text, "You are Coatcard AI")
	require.Equal(t, "How do I reverse a linked list?", provider.lastHistory[1].Parts[0].Text)
	require.Equal(t, 1, provider.titleCalls)
}

func TestSendMessageKeepsTitleAfterFirstExchange(t *testing.T) {
	app, _, provider := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	first := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?"), cookie)
	require.Equal(t, fiber.StatusOK, first.StatusCode)

	provider.title = "A Different Title"
	second := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?", "Here is your answer.", "Can you show it in Go?"), cookie)
	require.Equal(t, fiber.StatusOK, second.StatusCode)

	require.Equal(t, 1, provider.titleCalls)

	var stored models.Chat
	require.NoError(t, database.DB.First(&stored, "id = ?", chat.ID).Error)
	require.Equal(t, "Reversing Linked Lists", stored.Title)

	turns, err := stored.Turns()
	require.NoError(t, err)
	require.Len(t, turns, 4)
}

func TestSendMessageSurvivesTitleFailure(t *testing.T) {
	app, _, provider := setupTestApp(t)
	provider.titleErr = errors.New("quota exceeded")
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	resp := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?"), cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Chat
	require.NoError(t, database.DB.First(&stored, "id = ?", chat.ID).Error)
	require.Equal(t, models.DefaultChatTitle, stored.Title)

	turns, err := stored.Turns()
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestSendMessageAIFailureLeavesHistoryUntouched(t *testing.T) {
	app, _, provider := setupTestApp(t)
	provider.replyErr = errors.New("upstream unavailable")
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	resp := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?"), cookie)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "Failed to get response from AI.")

	var stored models.Chat
	require.NoError(t, database.DB.First(&stored, "id = ?", chat.ID).Error)
	turns, err := stored.Turns()
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestSendMessageRejectsEmptyHistory(t *testing.T) {
	app, _, _ := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	body := fmt.Sprintf(`{"chatId":%q,"history":[]}`, chat.ID.String())
	resp := doJSON(t, app, fiber.MethodPost, "/api/chat", body, cookie)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatOwnershipIsEnforced(t *testing.T) {
	app, _, _ := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	createUser(t, "vera@example.com", true)

	danaCookie := login(t, app, "dana@example.com")
	veraCookie := login(t, app, "vera@example.com")
	chat := createChatForUser(t, app, danaCookie)

	// Foreign threads are indistinguishable from missing ones.
	get := doJSON(t, app, fiber.MethodGet, "/api/chat/"+chat.ID.String(), "", veraCookie)
	require.Equal(t, fiber.StatusNotFound, get.StatusCode)

	send := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "hello"), veraCookie)
	require.Equal(t, fiber.StatusNotFound, send.StatusCode)

	del := doJSON(t, app, fiber.MethodDelete, "/api/chat/"+chat.ID.String(), "", veraCookie)
	require.Equal(t, fiber.StatusNotFound, del.StatusCode)

	// The owner still sees it.
	ownerGet := doJSON(t, app, fiber.MethodGet, "/api/chat/"+chat.ID.String(), "", danaCookie)
	require.Equal(t, fiber.StatusOK, ownerGet.StatusCode)
}

func TestClearChatResetsHistoryAndTitle(t *testing.T) {
	app, _, _ := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	first := doJSON(t, app, fiber.MethodPost, "/api/chat",
		sendBody(chat.ID.String(), "How do I reverse a linked list?"), cookie)
	require.Equal(t, fiber.StatusOK, first.StatusCode)

	resp := doJSON(t, app, fiber.MethodPost, "/api/chat/clear/"+chat.ID.String(), "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Chat
	require.NoError(t, database.DB.First(&stored, "id = ?", chat.ID).Error)
	require.Equal(t, models.DefaultChatTitle, stored.Title)

	turns, err := stored.Turns()
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestDeleteChat(t *testing.T) {
	app, _, _ := setupTestApp(t)
	createUser(t, "dana@example.com", true)
	cookie := login(t, app, "dana@example.com")
	chat := createChatForUser(t, app, cookie)

	resp := doJSON(t, app, fiber.MethodDelete, "/api/chat/"+chat.ID.String(), "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	again := doJSON(t, app, fiber.MethodDelete, "/api/chat/"+chat.ID.String(), "", cookie)
	require.Equal(t, fiber.StatusNotFound, again.StatusCode)

	get := doJSON(t, app, fiber.MethodGet, "/api/chat/"+chat.ID.String(), "", cookie)
	require.Equal(t, fiber.StatusNotFound, get.StatusCode)
}
