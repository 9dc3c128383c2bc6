package gormstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crmapi/crm-service/internal/core/domain"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open(context.Background(), DialectSQLite, dsn, zerolog.Nop(), false)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func seedCustomers(t *testing.T, repo *CustomerRepository, cs ...domain.Customer) []domain.Customer {
	t.Helper()
	out := make([]domain.Customer, 0, len(cs))
	for _, c := range cs {
		created, err := repo.Create(context.Background(), &c)
		require.NoError(t, err)
		out = append(out, *created)
	}
	return out
}

func customer(first, last, email, region string, date time.Time) domain.Customer {
	return domain.Customer{FirstName: first, LastName: last, Email: email, Region: region, RegistrationDate: date}
}

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t,
		"crm:crm@tcp(localhost:3306)/crm?parseTime=true&loc=UTC&clientFoundRows=true",
		mysqlDSN("crm:crm@tcp(localhost:3306)/crm"))
	assert.Equal(t,
		"u:p@tcp(db)/crm?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		mysqlDSN("u:p@tcp(db)/crm?charset=utf8mb4&parseTime=True"))
}

func TestUserRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestSQLiteDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	created, err := repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "hash", Role: domain.RoleAdmin, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	exists, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	_, err = repo.FindByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsernameClause_CaseSensitiveOnEveryDialect(t *testing.T) {
	assert.Equal(t, "username = BINARY ?", usernameClause(DialectMySQL))
	assert.Equal(t, "username = ?", usernameClause(DialectSQLite))
	assert.Contains(t, mysqlBinaryUsername, "utf8mb4_bin")
}

func TestUserRepository_UsernamesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestSQLiteDB(t))
	now := time.Now().UTC()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h1", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Create(ctx, &domain.User{Username: "Alice", PasswordHash: "h2", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	got, err := repo.FindByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
}

func TestCustomerRepository_ListOrderedByID(t *testing.T) {
	repo := NewCustomerRepository(newTestSQLiteDB(t))
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedCustomers(t, repo,
		customer("A", "One", "a@x.io", "North", d),
		customer("B", "Two", "b@x.io", "South", d),
		customer("C", "Three", "c@x.io", "East", d),
	)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].ID < all[1].ID && all[1].ID < all[2].ID)
}

func TestCustomerRepository_Filter(t *testing.T) {
	repo := NewCustomerRepository(newTestSQLiteDB(t))
	ctx := context.Background()
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	seedCustomers(t, repo,
		customer("John", "Doe", "john@acme.io", "North", d),
		customer("Ann", "Jones", "ann@corp.io", "South", d.AddDate(0, 0, 1)),
		customer("Bob", "Smith", "bob@acme.io", "North", d),
		customer("Sam", "100%_Pure", "sam@pure.io", "West", d),
	)

	names := func(cs []domain.Customer) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.FirstName)
		}
		return out
	}

	got, err := repo.Filter(ctx, domain.CustomerFilter{Name: "jo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"John", "Ann"}, names(got))

	got, err = repo.Filter(ctx, domain.CustomerFilter{Email: "ACME", Region: "nor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"John", "Bob"}, names(got))

	afternoon := d.Add(15 * time.Hour)
	got, err = repo.Filter(ctx, domain.CustomerFilter{RegistrationDate: &afternoon})
	require.NoError(t, err)
	assert.Equal(t, []string{"John", "Bob", "Sam"}, names(got))

	got, err = repo.Filter(ctx, domain.CustomerFilter{Name: "%_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sam"}, names(got))

	got, err = repo.Filter(ctx, domain.CustomerFilter{Region: "nowhere"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCustomerRepository_UpdateAndDelete(t *testing.T) {
	repo := NewCustomerRepository(newTestSQLiteDB(t))
	ctx := context.Background()
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	seeded := seedCustomers(t, repo, customer("John", "Doe", "john@acme.io", "North", d))

	c := seeded[0]
	c.Region = "East"
	require.NoError(t, repo.Update(ctx, &c))

	// Same values again still counts as a matched row.
	require.NoError(t, repo.Update(ctx, &c))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "East", got.Region)
	assert.True(t, got.RegistrationDate.Equal(d))

	missing := c
	missing.ID = c.ID + 100
	assert.ErrorIs(t, repo.Update(ctx, &missing), domain.ErrStaleUpdate)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), domain.ErrCustomerNotFound)

	_, err = repo.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
