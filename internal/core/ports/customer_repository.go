package ports

import (
	"context"

	"github.com/crmapi/crm-service/internal/core/domain"
)

// CustomerRepository defines the persistence contract for customers.
type CustomerRepository interface {
	// List returns all customers ordered by id ascending.
	List(ctx context.Context) ([]domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
	// Update returns domain.ErrStaleUpdate when no record was changed.
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error)
}
