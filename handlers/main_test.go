package handlers_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coatcard/coatcard-ai/ai"
	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/middleware"
	"github.com/coatcard/coatcard-ai/models"
	"github.com/coatcard/coatcard-ai/notifications"
	"github.com/coatcard/coatcard-ai/routes"
)

const testPassword = "password123"

type sentMail struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// mailRecorder captures outgoing mail instead of hitting the Brevo API.
type mailRecorder struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *mailRecorder) Send(toName, toEmail, subject, htmlContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{ToName: toName, ToEmail: toEmail, Subject: subject, Body: htmlContent})
	return nil
}

func (m *mailRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mailRecorder) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// fakeAI is a canned Provider that records what it was asked.
type fakeAI struct {
	mu          sync.Mutex
	replyText   string
	title       string
	replyErr    error
	titleErr    error
	replyCalls  int
	titleCalls  int
	lastHistory []models.Turn
}

func (f *fakeAI) GenerateReply(ctx context.Context, history []models.Turn) ([]models.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyCalls++
	f.lastHistory = append([]models.Turn(nil), history...)
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	return []models.Part{{Text: f.replyText}}, nil
}

func (f *fakeAI) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return f.title, nil
}

// setupTestApp builds the full route surface against an in-memory database
// with fake mail and AI collaborators installed.
func setupTestApp(t *testing.T) (*fiber.App, *mailRecorder, *fakeAI) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-session-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Chat{}, &models.Session{}))

	prevDB := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prevDB })

	recorder := &mailRecorder{}
	prevMail := notifications.EmailClient
	notifications.EmailClient = recorder
	t.Cleanup(func() { notifications.EmailClient = prevMail })

	provider := &fakeAI{replyText: "Here is your answer.", title: "Reversing Linked Lists"}
	prevAI := ai.Client
	ai.Client = provider
	t.Cleanup(func() { ai.Client = prevAI })

	engine := html.New("../views", ".html")
	app := fiber.New(fiber.Config{Views: engine})

	routes.PageRoutes(app)
	routes.AuthRoutes(app)
	routes.ChatRoutes(app)
	routes.ProfileRoutes(app)

	return app, recorder, provider
}

func createUser(t *testing.T, email string, verified bool) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:    strings.SplitN(email, "@", 2)[0],
		Email:       email,
		Password:    string(hash),
		Role:        models.RoleLearner,
		FieldOfWork: "Backend development",
		Goal:        "Pass coding interviews",
		IsVerified:  verified,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, app *fiber.App, email string) *http.Cookie {
	t.Helper()
	resp := postForm(t, app, "/auth/login", url.Values{
		"email":    {email},
		"password": {testPassword},
	})
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, "/chat", resp.Header.Get(fiber.HeaderLocation))

	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie {
			return ck
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
