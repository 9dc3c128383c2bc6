package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmapi/crm-service/internal/core/domain"
)

const customerColumns = `id, first_name, last_name, email, region, registration_date`

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	return r.query(ctx, `select `+customerColumns+` from customers order by id`)
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	c, err := scanCustomer(r.pool.QueryRow(ctx, `select `+customerColumns+` from customers where id = $1`, id))
	if err != nil {
		return nil, mapPgErr(err, domain.ErrCustomerNotFound)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	out := *c
	err := r.pool.QueryRow(ctx, `
		insert into customers (first_name, last_name, email, region, registration_date)
		values ($1, $2, $3, $4, $5)
		returning id
	`, c.FirstName, c.LastName, c.Email, c.Region, c.RegistrationDate).Scan(&out.ID)
	if err != nil {
		return nil, mapPgErr(err, domain.ErrCustomerNotFound)
	}
	return &out, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		update customers
		set first_name = $2, last_name = $3, email = $4, region = $5, registration_date = $6
		where id = $1
	`, c.ID, c.FirstName, c.LastName, c.Email, c.Region, c.RegistrationDate)
	if err != nil {
		return mapPgErr(err, domain.ErrCustomerNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleUpdate
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `delete from customers where id = $1`, id)
	if err != nil {
		return mapPgErr(err, domain.ErrCustomerNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Filter(ctx context.Context, f domain.CustomerFilter) ([]domain.Customer, error) {
	where, args := buildFilter(f)
	return r.query(ctx, `select `+customerColumns+` from customers`+where+` order by id`, args...)
}

func (r *CustomerRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgErr(err, domain.ErrCustomerNotFound)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Region, &c.RegistrationDate)
	c.RegistrationDate = domain.DateOnly(c.RegistrationDate)
	return c, err
}

// buildFilter renders the WHERE clause for f. Text constraints use
// case-insensitive LIKE with wildcards in the input escaped.
func buildFilter(f domain.CustomerFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Name != "" {
		p := next(likePattern(f.Name))
		conds = append(conds, fmt.Sprintf("(lower(first_name) like %s escape '!' or lower(last_name) like %s escape '!')", p, p))
	}
	if f.Email != "" {
		conds = append(conds, fmt.Sprintf("lower(email) like %s escape '!'", next(likePattern(f.Email))))
	}
	if f.Region != "" {
		conds = append(conds, fmt.Sprintf("lower(region) like %s escape '!'", next(likePattern(f.Region))))
	}
	if f.RegistrationDate != nil {
		conds = append(conds, "registration_date = "+next(domain.DateOnly(*f.RegistrationDate))+"::date")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
