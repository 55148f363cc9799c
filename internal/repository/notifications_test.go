package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

func TestTryMarkNotified_NewKeyClaims(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewNotificationRepository(db, zap.NewNop())

	mock.ExpectExec(`INSERT INTO notified_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fresh, err := repo.TryMarkNotified(context.Background(), "sub-1", "rec-1", models.EventArrested)

	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryMarkNotified_DuplicateKeySkips(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewNotificationRepository(db, zap.NewNop())

	// ON CONFLICT DO NOTHING reports zero affected rows for a duplicate.
	mock.ExpectExec(`INSERT INTO notified_events`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	fresh, err := repo.TryMarkNotified(context.Background(), "sub-1", "rec-1", models.EventArrested)

	require.NoError(t, err)
	assert.False(t, fresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}
