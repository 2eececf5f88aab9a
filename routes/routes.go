package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog"

	"equiherds-backend/auth"
	"equiherds-backend/controllers"
	"equiherds-backend/database"
	"equiherds-backend/logging"
	"equiherds-backend/metrics"
	"equiherds-backend/middlewares"
)

// Deps is everything the HTTP layer is built from.
type Deps struct {
	Manager   *database.Manager
	Users     database.UserStore
	Tokens    *auth.TokenService
	Passwords *auth.PasswordHasher
	Logger    zerolog.Logger
	Started   time.Time

	AllowedOrigins  string
	BodyLimit       int
	RateLimitMax    int // 0 disables the limiter
	RateLimitWindow time.Duration
}

// NewApp builds the fiber app with the global middleware stack and all routes.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             d.BodyLimit,
		DisableStartupMessage: true,
	})

	// Order: metrics wrap the request logger, which writes error responses.
	app.Use(middlewares.RequestMetrics())
	app.Use(logging.Middleware(d.Logger))

	origins := d.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	if d.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        d.RateLimitMax,
			Expiration: d.RateLimitWindow,
			// Default KeyGenerator = client IP; default 429 handler is fine.
		}))
	}

	Register(app, d)
	return app
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	app.Get("/metrics", metrics.Handler())

	authCtl := controllers.NewAuthController(d.Users, d.Tokens, d.Passwords)
	health := controllers.NewHealthController(d.Manager, d.Started)

	// Every /api request holds a ready store handle before its handler runs.
	api := app.Group("/api", middlewares.Connection(d.Manager))

	// Public endpoints
	api.Get("/healthz", health.Healthz)
	api.Post("/registration", authCtl.Register)
	api.Post("/login", authCtl.Login)
	api.Post("/logout", authCtl.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.RequireAuth(d.Tokens))

	protected.Get("/me", authCtl.Me)
	protected.Put("/me", middlewares.Transaction(), authCtl.UpdateMe)
}
