package middleware

import (
	"storekode/internal/requestid"

	"github.com/gofiber/fiber/v2"
)

// RequestID injects a request ID into the user context and response header.
// If the incoming request already carries X-Request-ID, it is preserved;
// otherwise a new UUID v4 is generated.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestid.Header)
		if id == "" {
			id = requestid.New()
		}

		c.SetUserContext(requestid.WithRequestID(c.UserContext(), id))
		c.Set(requestid.Header, id)
		return c.Next()
	}
}
