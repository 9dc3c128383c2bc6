package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmapi/crm-service/internal/core/domain"
	"github.com/crmapi/crm-service/internal/core/ports"
	"github.com/crmapi/crm-service/internal/infrastructure/config"
	"github.com/crmapi/crm-service/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env: "test",
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret",
			JWTIssuer:           "crm-test",
			RegistrationEnabled: false,
			AdminUsername:       "root",
			AdminPassword:       "r00t",
		},
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: fmt.Sprintf("file:cmd-%d?mode=memory&cache=shared", time.Now().UnixNano()),
		},
	}
}

func TestNewAuthService_SharesTokenService(t *testing.T) {
	t.Cleanup(logger.Reset)
	logger.Init(logger.Options{Level: "error"})

	ctx := context.Background()
	cfg := testConfig()
	store, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore(store)

	auth, tokens, err := newAuthService(cfg, store.Users, zerolog.Nop())
	require.NoError(t, err)

	_, err = auth.CreateUser(ctx, ports.RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	token, err := auth.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestBootstrapAdmin_CreatesOnce(t *testing.T) {
	t.Cleanup(logger.Reset)
	logger.Init(logger.Options{Level: "error"})

	ctx := context.Background()
	cfg := testConfig()
	store, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore(store)

	auth, _, err := newAuthService(cfg, store.Users, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, bootstrapAdmin(ctx, cfg, store.Users, auth, zerolog.Nop()))
	require.NoError(t, bootstrapAdmin(ctx, cfg, store.Users, auth, zerolog.Nop()))

	user, err := store.Users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = auth.Login(ctx, "root", "r00t")
	assert.NoError(t, err)
}
