package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Config struct {
	Service string
	Env     string // e.g. "dev", "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // "json" or "text"
	Output  io.Writer
}

// New returns a configured zerolog.Logger.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Str("env", cfg.Env)
	if cfg.Env == "dev" {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func parseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// FromContext returns the request logger stored by Middleware, or a disabled
// logger when there is none.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// Middleware attaches a per-request logger to the request's user context and
// logs one http_request line after the handler chain has run.
func Middleware(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		logger := base.With().
			Str("req_id", reqID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("remote_addr", c.IP()).
			Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))

		err := c.Next()

		// Let the app's ErrorHandler write the response so the status is final.
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				logger.Error().Err(herr).Msg("error handler failed")
			}
		}

		logger.Info().
			Int("status", c.Response().StatusCode()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("user_agent", c.Get(fiber.HeaderUserAgent)).
			Msg("http_request")
		return nil
	}
}
