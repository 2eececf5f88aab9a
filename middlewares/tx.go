package middlewares

import (
	"equiherds-backend/database"
	"equiherds-backend/logging"

	"github.com/gofiber/fiber/v2"
)

// Transaction runs the rest of the chain inside a transaction on the request
// handle. Order: after Connection() so a handle is bound.
func Transaction() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		db, ok := database.HandleFrom(c.UserContext())
		if !ok {
			return c.Next()
		}

		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				logging.FromContext(c.UserContext()).Error().Err(e).Msg("tx commit failed")
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.SetUserContext(database.WithHandle(c.UserContext(), tx))

		err = c.Next()
		return err
	}
}
