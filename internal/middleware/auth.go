package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storekode/internal/metrics"
	"storekode/internal/models"
	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	msgAuthFailed   = "Authentication failed"
	msgTokenExpired = "Token expired"
	msgForbidden    = "Forbidden"

	msgInternalServer = "Internal server error"
	reasonInternal    = "internal"
)

// identityResolver is the subset of AuthService the gate needs.
type identityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (models.Identity, error)
}

// ParseBearer extracts the token from an Authorization header value of the form
// "Bearer <token>".
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", services.ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", services.ErrMalformedHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", services.ErrMalformedHeader
	}
	return token, nil
}

// AuthRequired is a Fiber middleware that resolves the bearer token into an
// identity and attaches it to the request's user context.
//
// Every rejection is 401 with the same message, except an expired token, which
// says so. The concrete reason is only logged and counted. A failed identity
// lookup is a server fault and answers 500.
func AuthRequired(resolver identityResolver, m *metrics.Metrics, logger *slog.Logger) fiber.Handler {
	logger = logger.With("component", "auth_gate")

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		token, err := ParseBearer(c.Get(fiber.HeaderAuthorization))
		if err == nil {
			var identity models.Identity
			identity, err = resolver.ResolveIdentity(ctx, token)
			if err == nil {
				c.SetUserContext(WithIdentity(ctx, identity))
				return c.Next()
			}
		}

		reason := failureReason(err)
		if m != nil {
			m.AuthFailuresTotal.WithLabelValues(reason).Inc()
		}
		if reason == reasonInternal {
			// The token may be fine; the lookup behind it failed.
			logger.ErrorContext(ctx, "authentication lookup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": msgInternalServer,
			})
		}
		logger.InfoContext(ctx, "authentication failed", "reason", reason)

		message := msgAuthFailed
		if errors.Is(err, services.ErrTokenExpired) {
			message = msgTokenExpired
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": message,
		})
	}
}

// RequireIdentity rejects requests that reach it without an identity. It runs
// behind AuthRequired, so a rejection here points at a routing mistake.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFrom(c.UserContext()); !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": msgForbidden,
			})
		}
		return c.Next()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, services.ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, services.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, services.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, services.ErrUnknownSubject):
		return "unknown_subject"
	default:
		return reasonInternal
	}
}
