package middlewares

import (
	"time"

	"equiherds-backend/metrics"

	"github.com/gofiber/fiber/v2"
)

// RequestMetrics records count and latency per matched route.
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		metrics.ObserveRequest(c.Method(), c.Route().Path, status, time.Since(start).Seconds())
		return err
	}
}
