package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/robfig/cron/v3"

	"github.com/coatcard/coatcard-ai/ai"
	config "github.com/coatcard/coatcard-ai/configs"
	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/jobs"
	"github.com/coatcard/coatcard-ai/notifications"
	"github.com/coatcard/coatcard-ai/routes"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	notifications.InitEmailService()

	if apiKey := config.Config("GEMINI_API_KEY"); apiKey == "" {
		log.Println("⚠️ GEMINI_API_KEY not set; chat requests will fail until it is configured.")
	} else {
		provider, err := ai.NewGeminiProvider(context.Background(), apiKey, config.ConfigOr("GEN_MODEL", "gemini-2.0-flash"))
		if err != nil {
			log.Fatalf("🔥 Failed to initialize Gemini client: %v", err)
		}
		defer provider.Close()
		ai.Client = provider
	}

	c := cron.New()
	c.AddFunc("*/30 * * * *", jobs.CleanupExpiredCredentials)
	go c.Start()
	log.Println("✅ Cron job for credential cleanup scheduled successfully.")

	engine := html.New("./views", ".html")

	app := fiber.New(fiber.Config{
		AppName:       "Coatcard AI",
		Views:         engine,
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  90 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Something went wrong"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.ConfigOr("BASE_URL", "http://localhost:3000"),
		AllowCredentials: true,
	}))
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Static("/static", "./static")

	routes.PageRoutes(app)
	routes.AuthRoutes(app)
	routes.ProfileRoutes(app)
	routes.ChatRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	port := config.ConfigOr("PORT", "3000")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
