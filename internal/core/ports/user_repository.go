package ports

import (
	"context"

	"github.com/crmapi/crm-service/internal/core/domain"
)

// UserRepository defines the persistence contract for user accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	// Create returns domain.ErrUserExists when the username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
