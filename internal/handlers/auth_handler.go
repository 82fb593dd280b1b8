package handlers

import (
	"log/slog"

	"storekode/internal/metrics"
	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for signup and signin.
type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
		logger:      logger.With("component", "auth_handler"),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignUp)
	authRoutes.Post("/signin", h.HandleSignIn)
}

// HandleSignUp handles new user registration.
// POST /auth/signup → 201 {message, token, expiresAt, user}
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	session, err := h.authService.SignUp(c.UserContext(), req)
	h.count("signup", err)
	if err != nil {
		return writeError(c, h.logger, "signup", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "User created successfully",
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      session.User.View(),
	})
}

// HandleSignIn handles user login and issues a JWT token.
// POST /auth/signin → 200 {message, token, expiresAt, user}
func (h *AuthHandler) HandleSignIn(c *fiber.Ctx) error {
	var req services.SignInInput
	if err := c.BodyParser(&req); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	session, err := h.authService.SignIn(c.UserContext(), req)
	h.count("signin", err)
	if err != nil {
		return writeError(c, h.logger, "signin", err)
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      session.User.View(),
	})
}

func (h *AuthHandler) count(kind string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	h.metrics.AuthSessionsTotal.WithLabelValues(kind, outcome).Inc()
}
