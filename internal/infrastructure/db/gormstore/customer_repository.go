package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.find(r.db.WithContext(ctx))
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec customerRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c := rec.toDomain()
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec := toCustomerRecord(c)
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	out := rec.toDomain()
	return &out, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec := toCustomerRecord(c)
	res := r.db.WithContext(ctx).Model(&customerRecord{}).Where("id = ?", c.ID).Updates(map[string]any{
		"first_name":        rec.FirstName,
		"last_name":         rec.LastName,
		"email":             rec.Email,
		"region":            rec.Region,
		"registration_date": rec.RegistrationDate,
	})
	if res.Error != nil {
		return fmt.Errorf("update customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleUpdate
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&customerRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := r.db.WithContext(ctx)
	if f.Name != "" {
		p := likePattern(f.Name)
		q = q.Where("(LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!')", p, p)
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) LIKE ? ESCAPE '!'", likePattern(f.Email))
	}
	if f.Region != "" {
		q = q.Where("LOWER(region) LIKE ? ESCAPE '!'", likePattern(f.Region))
	}
	if f.RegistrationDate != nil {
		day := domain.DateOnly(*f.RegistrationDate)
		q = q.Where("registration_date >= ? AND registration_date < ?", day, day.AddDate(0, 0, 1))
	}
	return r.find(q)
}

func (r *CustomerRepository) find(q *gorm.DB) ([]domain.Customer, error) {
	var recs []customerRecord
	if err := q.Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]domain.Customer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
