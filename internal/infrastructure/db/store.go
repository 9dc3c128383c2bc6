// Package db selects and opens the persistence backend named by STORE_DRIVER.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/core/ports"
	"github.com/crmapi/crm-service/internal/infrastructure/config"
	"github.com/crmapi/crm-service/internal/infrastructure/db/gormstore"
	"github.com/crmapi/crm-service/internal/infrastructure/db/mongo"
	"github.com/crmapi/crm-service/internal/infrastructure/db/postgres"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Store bundles the repositories of one backend with its lifecycle hooks.
type Store struct {
	Driver    string
	Users     ports.UserRepository
	Customers ports.CustomerRepository
	Pinger    ports.Pinger

	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Migrate creates or updates the backend schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Open connects to the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	log = log.With().Str("store", driver).Logger()

	switch driver {
	case DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:    driver,
			Users:     postgres.NewUserRepository(pool),
			Customers: postgres.NewCustomerRepository(pool),
			Pinger:    pool,
			migrate:   func(ctx context.Context) error { return postgres.Migrate(ctx, pool) },
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case DriverMySQL, DriverSQLite:
		gdb, err := gormstore.Open(ctx, driver, cfg.Store.DatabaseURL, log, cfg.IsDev())
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:    driver,
			Users:     gormstore.NewUserRepository(gdb),
			Customers: gormstore.NewCustomerRepository(gdb),
			Pinger:    gormstore.NewPinger(gdb),
			migrate:   func(ctx context.Context) error { return gormstore.Migrate(ctx, gdb) },
			close:     func(context.Context) error { return gormstore.Close(gdb) },
		}, nil

	case DriverMongo:
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:    driver,
			Users:     mongo.NewUserRepository(mdb),
			Customers: mongo.NewCustomerRepository(mdb),
			Pinger:    mongo.NewPinger(mdb),
			migrate:   func(ctx context.Context) error { return mongo.EnsureIndexes(ctx, mdb) },
			close:     client.Disconnect,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
