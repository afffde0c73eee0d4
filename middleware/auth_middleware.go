package middleware

import (
	"strings"
	"time"

	config "github.com/coatcard/coatcard-ai/configs"
	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SessionCookie is the signed cookie carrying the session token.
const SessionCookie = "coatcard_session"

// Identity is the immutable per-request snapshot of the logged-in user.
type Identity struct {
	ID               uuid.UUID
	Username         string
	Email            string
	Role             string
	FieldOfWork      string
	Goal             string
	Language         string
	ExplanationStyle string
	HasAvatar        bool
}

// Protected validates the signed session cookie. Chain LoadIdentity after it
// to resolve the session record and user.
func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  []byte(config.Config("SESSION_SECRET")),
		TokenLookup: "cookie:" + SessionCookie,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// LoadIdentity resolves the sid claim against the sessions table, loads the
// owning user and stores an Identity in Locals. Sessions slide: the expiry
// is pushed out once less than half the window remains.
func LoadIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Locals("user").(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)

		sid, _ := claims["sid"].(string)
		sessionID, err := uuid.Parse(sid)
		if err != nil {
			return unauthorized(c)
		}

		var session models.Session
		if err := database.DB.Where("id = ? AND expires_at > ?", sessionID, time.Now()).First(&session).Error; err != nil {
			return unauthorized(c)
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", session.UserID).Error; err != nil {
			return unauthorized(c)
		}

		if time.Until(session.ExpiresAt) < models.SessionDuration/2 {
			newExpiry := time.Now().Add(models.SessionDuration)
			database.DB.Model(&session).Update("expires_at", newExpiry)
			setSessionCookie(c, c.Cookies(SessionCookie), newExpiry)
		}

		c.Locals("identity", Identity{
			ID:               user.ID,
			Username:         user.Username,
			Email:            user.Email,
			Role:             user.Role,
			FieldOfWork:      user.FieldOfWork,
			Goal:             user.Goal,
			Language:         user.Language,
			ExplanationStyle: user.ExplanationStyle,
			HasAvatar:        user.HasAvatar(),
		})
		return c.Next()
	}
}

// CurrentIdentity returns the identity set by LoadIdentity.
func CurrentIdentity(c *fiber.Ctx) Identity {
	return c.Locals("identity").(Identity)
}

// IssueSession creates a session record and sets the signed cookie.
func IssueSession(c *fiber.Ctx, userID uuid.UUID) error {
	session := models.Session{
		UserID:    userID,
		ExpiresAt: time.Now().Add(models.SessionDuration),
	}
	if err := database.DB.Create(&session).Error; err != nil {
		return err
	}

	// No exp claim: the sessions table governs lifetime so the window can
	// keep sliding. LoadIdentity rejects expired rows.
	claims := jwt.MapClaims{
		"sid": session.ID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Config("SESSION_SECRET")))
	if err != nil {
		return err
	}

	setSessionCookie(c, signed, session.ExpiresAt)
	return nil
}

func setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}

// DestroySession deletes the session record referenced by the cookie, if
// any, and clears the cookie. Safe to call when not logged in.
func DestroySession(c *fiber.Ctx) {
	if sessionID, ok := sessionIDFromCookie(c); ok {
		database.DB.Where("id = ?", sessionID).Delete(&models.Session{})
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}

// SessionUserID reports the user behind the cookie without failing the
// request. Used by public pages that redirect logged-in users to the chat.
func SessionUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	sessionID, ok := sessionIDFromCookie(c)
	if !ok {
		return uuid.Nil, false
	}
	var session models.Session
	if err := database.DB.Where("id = ? AND expires_at > ?", sessionID, time.Now()).First(&session).Error; err != nil {
		return uuid.Nil, false
	}
	return session.UserID, true
}

func sessionIDFromCookie(c *fiber.Ctx) (uuid.UUID, bool) {
	raw := c.Cookies(SessionCookie)
	if raw == "" {
		return uuid.Nil, false
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.Config("SESSION_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false
	}

	sid, _ := claims["sid"].(string)
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return uuid.Nil, false
	}
	return sessionID, true
}

// Page routes send the visitor back to the login form; API routes get JSON.
func unauthorized(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return c.Redirect("/login")
}
