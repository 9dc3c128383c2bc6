package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	users               ports.UserRepository
	tokens              ports.TokenService
	logger              zerolog.Logger
	registrationEnabled bool
	hashCost            int
	now                 func() time.Time
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenService, logger zerolog.Logger, registrationEnabled bool) *AuthService {
	return &AuthService{
		users:               users,
		tokens:              tokens,
		logger:              logger,
		registrationEnabled: registrationEnabled,
		hashCost:            bcrypt.DefaultCost,
		now:                 time.Now,
	}
}

// Register creates a self-service account. It is rejected outright when
// registration is turned off.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if !s.registrationEnabled {
		return nil, domain.ErrRegistrationDisabled
	}
	return s.CreateUser(ctx, input)
}

// CreateUser provisions an account regardless of the registration flag.
func (s *AuthService) CreateUser(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := validateCredentials(username, input.Password); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, domain.NewValidationError("role must be one of: User, Admin")
	}

	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Warn().Str("username", username).Msg("registration rejected: username taken")
		return nil, domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.logger.Warn().Str("username", username).Msg("registration rejected: username taken")
		}
		return nil, err
	}

	s.logger.Info().Str("username", created.Username).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Login verifies the credentials and returns a signed session token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Warn().Str("username", username).Msg("login failed: unknown user")
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("username", username).Msg("login failed: wrong password")
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("username", user.Username).Msg("login succeeded")
	return token, nil
}

func validateCredentials(username, password string) error {
	var problems []string
	switch {
	case username == "":
		problems = append(problems, "username is required")
	case len([]rune(username)) > domain.MaxUsernameLength:
		problems = append(problems, "username must be at most 32 characters")
	}
	switch {
	case password == "":
		problems = append(problems, "password is required")
	case len(password) > domain.MaxPasswordLength:
		problems = append(problems, "password must be at most 72 bytes")
	}
	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}
