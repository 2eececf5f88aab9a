package middlewares

import (
	"equiherds-backend/auth"
	"equiherds-backend/metrics"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// RequireAuth validates the Bearer token and stashes its claims for the
// request. Every failure (no header, bad scheme, bad signature, expired) is
// the same auth.ErrUnauthenticated.
func RequireAuth(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := tokens.VerifyHeader(c.Get(auth.AuthorizationHeader))
		if !ok {
			metrics.TokenVerifications.WithLabelValues("rejected").Inc()
			return auth.ErrUnauthenticated
		}
		metrics.TokenVerifications.WithLabelValues("accepted").Inc()

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
