package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

func newMockConnectionRepo(t *testing.T) (*PostgreSQLPlatformConnectionRepository, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return &PostgreSQLPlatformConnectionRepository{db: sqlxDB}, mock, sqlxDB
}

func TestPostgreSQLPlatformConnectionRepository_GetByID_Found(t *testing.T) {
	repo, mock, db := newMockConnectionRepo(t)
	defer db.Close()

	id := uuid.New()
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "platform", "display_name", "is_enabled", "status",
		"platform_specific_data", "encrypted_credentials",
		"last_sync_attempt_at", "last_sync_success_at", "last_error_message", "created_at", "updated_at",
	}).AddRow(
		id, userID, "shopify", "My Store", true, "syncing",
		[]byte(`{}`), []byte("token"),
		nil, nil, nil, now, now,
	)

	mock.ExpectQuery(`SELECT .+ FROM platform_connections WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnRows(rows)

	conn, err := repo.GetByID(context.Background(), userID, id)
	require.NoError(t, err)
	assert.Equal(t, id, conn.ID)
	assert.Equal(t, entity.ConnectionStatusSyncing, conn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPlatformConnectionRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, db := newMockConnectionRepo(t)
	defer db.Close()

	id := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM platform_connections WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), userID, id)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPlatformConnectionRepository_UpdateStatus_NoRowsIsNotFound(t *testing.T) {
	repo, mock, db := newMockConnectionRepo(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE platform_connections SET status = \$2`).
		WithArgs(id, "error", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), id, entity.ConnectionStatusError, nil)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
