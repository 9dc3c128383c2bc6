package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
)

type CustomerService struct {
	repo   ports.CustomerRepository
	logger zerolog.Logger
}

func NewCustomerService(repo ports.CustomerRepository, logger zerolog.Logger) *CustomerService {
	return &CustomerService{repo: repo, logger: logger}
}

func (s *CustomerService) List(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(customers), nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new customer. Any id on the input is ignored; the store
// assigns one.
func (s *CustomerService) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	c.ID = 0
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &c)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("customer_id", created.ID).Msg("customer created")
	return created, nil
}

// Update replaces the customer identified by id. The payload id must equal
// the path id. When the store reports that nothing changed, the record is
// looked up again: a missing record becomes ErrCustomerNotFound, anything
// else is returned as an unexpected failure.
func (s *CustomerService) Update(ctx context.Context, id int64, c domain.Customer) error {
	if c.ID != id {
		return domain.ErrIDMismatch
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	err := s.repo.Update(ctx, &c)
	if err == nil {
		s.logger.Info().Int64("customer_id", id).Msg("customer updated")
		return nil
	}
	if !errors.Is(err, domain.ErrStaleUpdate) {
		return err
	}

	if _, getErr := s.repo.Get(ctx, id); getErr != nil {
		if errors.Is(getErr, domain.ErrCustomerNotFound) {
			return domain.ErrCustomerNotFound
		}
		return getErr
	}
	s.logger.Error().Int64("customer_id", id).Msg("concurrent modification on existing customer")
	return fmt.Errorf("update customer %d: %w", id, err)
}

func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().
		Int64("customer_id", id).
		Str("name", existing.FullName()).
		Msg("customer deleted")
	return nil
}

// Filter returns customers matching every provided constraint. No match
// yields an empty slice.
func (s *CustomerService) Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Region = strings.TrimSpace(f.Region)
	if f.RegistrationDate != nil {
		d := domain.DateOnly(*f.RegistrationDate)
		f.RegistrationDate = &d
	}

	customers, err := s.repo.Filter(ctx, f)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("name", f.Name).
		Str("email", f.Email).
		Str("region", f.Region).
		Int("results", len(customers)).
		Msg("customer filter")
	return nonNil(customers), nil
}

func nonNil(cs []domain.Customer) []domain.Customer {
	if cs == nil {
		return []domain.Customer{}
	}
	return cs
}
