package repository

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// newIntegrationDB spins up a disposable Postgres container, runs the
// migrations against it, and returns a connected *sqlx.DB. Skipped under
// `go test -short` since it needs a Docker daemon.
func newIntegrationDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping testcontainers-backed integration test in -short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog_sync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runMigrationsForTest(t, db)
	return db
}

// runMigrationsForTest applies ../../../migrations against db, the same
// migration set database.Connect runs against a real deployment, just
// rooted relative to this package instead of the process working directory.
func runMigrationsForTest(t *testing.T, db *sqlx.DB) {
	t.Helper()
	driver, err := migratepostgres.WithInstance(db.DB, &migratepostgres.Config{})
	require.NoError(t, err)
	m, err := migrate.NewWithDatabaseInstance("file://../../../migrations", "postgres", driver)
	require.NoError(t, err)
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err)
	}
}

// TestPostgreSQLPlatformConnectionRepository_CRUD drives Create/GetByID/
// UpdateStatus/Delete against a real Postgres instance, confirming the
// JSONB platform_specific_data round-trip sqlmock can't exercise.
func TestPostgreSQLPlatformConnectionRepository_CRUD(t *testing.T) {
	db := newIntegrationDB(t)
	repo := NewPostgreSQLPlatformConnectionRepository(db)

	userID := uuid.New()
	conn := entity.NewPlatformConnection(userID, entity.PlatformType("shopify"), "Integration Store")
	conn.PlatformSpecificData["shop_domain"] = "integration-test.myshopify.com"

	require.NoError(t, repo.Create(context.Background(), conn))

	fetched, err := repo.GetByID(context.Background(), userID, conn.ID)
	require.NoError(t, err)
	require.Equal(t, "integration-test.myshopify.com", fetched.PlatformSpecificData["shop_domain"])

	require.NoError(t, repo.UpdateStatus(context.Background(), conn.ID, entity.ConnectionStatusConnecting, nil))
	fetched, err = repo.GetByID(context.Background(), userID, conn.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ConnectionStatusConnecting, fetched.Status)

	require.NoError(t, repo.Delete(context.Background(), userID, conn.ID))
	_, err = repo.GetByID(context.Background(), userID, conn.ID)
	require.Error(t, err)
	require.True(t, IsNotFoundError(err))
}
