package ports

import (
	"context"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type CustomerService interface {
	List(ctx context.Context) ([]domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	Update(ctx context.Context, id int64, c domain.Customer) error
	Delete(ctx context.Context, id int64) error
	Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error)
}
