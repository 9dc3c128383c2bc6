package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmapi/crm-service/internal/core/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx, `
		select id, username, password_hash, role, created_at, updated_at
		from users
		where username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err, domain.ErrUserNotFound)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, `select exists(select 1 from users where username = $1)`, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	out := *user
	err := r.pool.QueryRow(ctx, `
		insert into users (username, password_hash, role, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
		returning id
	`, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt, user.UpdatedAt).Scan(&out.ID)
	if err != nil {
		return nil, mapPgErr(err, domain.ErrUserNotFound)
	}
	return &out, nil
}
