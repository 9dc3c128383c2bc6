package ports

import (
	"context"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type RegisterInput struct {
	Username string
	Password string
	Role     string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// TokenService issues and validates signed session tokens.
type TokenService interface {
	Issue(subject string, role domain.Role) (string, error)
	Validate(token string) (*domain.Claims, error)
}
