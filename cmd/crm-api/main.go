// Command crm-api serves the CRM HTTP API and carries a few operator
// subcommands.
//
//	crm-api [serve]                                  run the HTTP server (default)
//	crm-api migrate                                  create or update the store schema
//	crm-api create-user -username u -password p [-role Admin]
//
// @title                       CRM API
// @version                     1.0
// @description                 Customer records with JWT authentication and role-based access.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/api"
	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
	"github.com/crmapi/crm-service/internal/core/service"
	"github.com/crmapi/crm-service/internal/infrastructure/config"
	"github.com/crmapi/crm-service/internal/infrastructure/db"
	"github.com/crmapi/crm-service/internal/infrastructure/db/redis"
	infrahttp "github.com/crmapi/crm-service/internal/infrastructure/http"
	"github.com/crmapi/crm-service/pkg/logger"
)

const serviceName = "crm-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.OptionsFor(cfg.LogLevel, cfg.Env, serviceName))

	switch cmd {
	case "serve":
		return serve(ctx, cfg, log)
	case "migrate":
		return migrate(ctx, cfg, log)
	case "create-user":
		return createUser(ctx, cfg, log, args)
	}
	return fmt.Errorf("unknown command %q (want serve, migrate or create-user)", cmd)
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*db.Store, error) {
	store, err := db.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return store, nil
}

func newAuthService(cfg *config.Config, users ports.UserRepository, log zerolog.Logger) (*service.AuthService, *service.TokenService, error) {
	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return nil, nil, err
	}
	return service.NewAuthService(users, tokens, log, cfg.Auth.RegistrationEnabled), tokens, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(store)

	authService, tokens, err := newAuthService(cfg, store.Users, log)
	if err != nil {
		return err
	}
	customerService := service.NewCustomerService(store.Customers, log)

	if err := bootstrapAdmin(ctx, cfg, store.Users, authService, log); err != nil {
		return err
	}

	opts := api.Options{
		AllowedOrigins:      cfg.HTTP.AllowedOrigins,
		RegistrationEnabled: cfg.Auth.RegistrationEnabled,
		SwaggerEnabled:      cfg.HTTP.SwaggerEnabled,
		Health:              map[string]ports.Pinger{store.Driver: store.Pinger},
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer client.Close()

		opts.LoginLimiter = redis.NewLoginLimiter(client, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
		opts.Health["redis"] = redis.NewPinger(client)
		log.Info().
			Int("limit", cfg.Auth.LoginRateLimit).
			Dur("window", cfg.Auth.LoginRateWindow).
			Msg("login rate limiting enabled")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Tokens:    tokens,
		Customers: customerService,
	}, opts, log)

	log.Info().
		Str("env", cfg.Env).
		Str("store", store.Driver).
		Bool("registration", cfg.Auth.RegistrationEnabled).
		Msg("starting crm api")
	return infrahttp.Serve(ctx, e, ":"+cfg.Port, cfg.HTTP.ShutdownTimeout, log)
}

// bootstrapAdmin provisions ADMIN_USERNAME once, so deployments with
// registration disabled still have a way in.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users ports.UserRepository, auth *service.AuthService, log zerolog.Logger) error {
	if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
		return nil
	}

	exists, err := users.Exists(ctx, cfg.Auth.AdminUsername)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if exists {
		return nil
	}

	_, err = auth.CreateUser(ctx, ports.RegisterInput{
		Username: cfg.Auth.AdminUsername,
		Password: cfg.Auth.AdminPassword,
		Role:     domain.RoleAdmin.String(),
	})
	if err != nil && !errors.Is(err, domain.ErrUserExists) {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info().Str("username", cfg.Auth.AdminUsername).Msg("admin user provisioned")
	return nil
}

func migrate(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(store)

	log.Info().Str("store", store.Driver).Msg("schema up to date")
	return nil
}

func createUser(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	password := fs.String("password", "", "password (required)")
	role := fs.String("role", domain.RoleUser.String(), "User or Admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		fs.Usage()
		return errors.New("create-user: -username and -password are required")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(store)

	auth, _, err := newAuthService(cfg, store.Users, log)
	if err != nil {
		return err
	}
	user, err := auth.CreateUser(ctx, ports.RegisterInput{
		Username: *username,
		Password: *password,
		Role:     *role,
	})
	if err != nil {
		return fmt.Errorf("create-user: %w", err)
	}

	log.Info().Str("username", user.Username).Str("role", user.Role.String()).Msg("user created")
	return nil
}

func closeStore(store *db.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		log := logger.Get()
		log.Warn().Err(err).Str("store", store.Driver).Msg("closing store")
	}
}
