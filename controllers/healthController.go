package controllers

import (
	"time"

	"equiherds-backend/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	mgr     *database.Manager
	started time.Time
}

func NewHealthController(mgr *database.Manager, started time.Time) *HealthController {
	return &HealthController{mgr: mgr, started: started}
}

// Healthz reports ok once the request has been handed a ready store handle.
// Mounted behind middlewares.Connection, so a store outage never reaches it.
func (h *HealthController) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":           "ok",
		"database":         h.mgr.State().String(),
		"connect_attempts": h.mgr.Attempts(),
		"uptime_seconds":   int64(time.Since(h.started).Seconds()),
	})
}
