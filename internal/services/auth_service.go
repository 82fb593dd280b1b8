package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storekode/internal/models"
	"storekode/internal/repositories"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// SignInInput is the signin payload.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what signup and signin hand back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	tokens     *TokenService
	bcryptCost int
	publisher  EventPublisher
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewAuthService creates a new AuthService. publisher may be nil.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService, bcryptCost int, publisher EventPublisher, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		publisher:  publisher,
		logger:     logger.With("component", "auth_service"),
		validate:   newValidator(),
	}
}

// Register creates a user with a bcrypt hash of the password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
	}
	// The unique index still decides when two signups race past the lookup.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, Event{
		Type:       EventUserRegistered,
		UserID:     user.ID,
		OccurredAt: user.CreatedAt,
	})
	return user, nil
}

// Authenticate returns the user owning email if password matches. Unknown email and
// wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SignUp registers a user and issues their first token.
func (s *AuthService) SignUp(ctx context.Context, in RegisterInput) (*Session, error) {
	user, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// SignIn authenticates a user and issues a token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// ResolveIdentity verifies tokenString and loads the user it names.
func (s *AuthService) ResolveIdentity(ctx context.Context, tokenString string) (models.Identity, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return models.Identity{}, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return models.Identity{}, ErrUnknownSubject
		}
		return models.Identity{}, fmt.Errorf("resolve token subject: %w", err)
	}
	return models.Identity{ID: user.ID, Email: user.Email}, nil
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
