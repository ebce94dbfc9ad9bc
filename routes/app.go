package routes

import (
	"log"
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/metrics"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the HTTP application with every route mounted.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "Tutor Booking",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  config.Get("CORS_ORIGINS", "*"),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   config.Get("TIMEZONE", "UTC"),
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Tutor Booking API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	limiter := middleware.NewRateLimiter(
		config.Float("RATE_LIMIT_RPS", 5),
		config.Int("RATE_LIMIT_BURST", 20),
	)

	AuthRoutes(app, limiter)
	ProfileRoutes(app)
	UploadRoutes(app)
	TeacherRoutes(app)
	BookingRoutes(app, limiter)
	MessagingRoutes(app, limiter)
	DashboardRoutes(app)
	AdminRoutes(app)

	return app
}
