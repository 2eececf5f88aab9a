package middlewares

import (
	"equiherds-backend/database"

	"github.com/gofiber/fiber/v2"
)

// Connection acquires the shared store handle before the handler runs and
// binds it to the request context. Failure ends the request with a
// *database.ConnectionError.
func Connection(mgr *database.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db, err := mgr.Acquire(c.UserContext())
		if err != nil {
			return err
		}
		c.SetUserContext(database.WithHandle(c.UserContext(), db))
		return c.Next()
	}
}
