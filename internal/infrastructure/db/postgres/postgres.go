package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmapi/crm-service/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Connect opens a pool for databaseURL and pings it to fail fast.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

const schema = `
create table if not exists users (
	id            bigserial primary key,
	username      varchar(32) not null unique,
	password_hash text not null,
	role          varchar(10) not null check (role in ('User', 'Admin')),
	created_at    timestamptz not null,
	updated_at    timestamptz not null
);

create table if not exists customers (
	id                bigserial primary key,
	first_name        varchar(50) not null,
	last_name         varchar(50) not null,
	email             varchar(100) not null,
	region            varchar(100) not null,
	registration_date date not null
);

create index if not exists customers_registration_date_idx on customers (registration_date);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// mapPgErr translates driver errors into domain errors where one applies.
func mapPgErr(err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrUserExists
		default:
			return fmt.Errorf("db_error %s: %s", pgErr.Code, pgErr.Message)
		}
	}
	return err
}
