package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReminderRepository(db)
	at := time.Now()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO booking_reminders .+ ON CONFLICT \(booking_id\) DO NOTHING`).
		WithArgs("b1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO booking_reminders`).
		WithArgs("b1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reminded, err := repo.HasReminded(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, reminded)

	first, err := repo.MarkReminded(context.Background(), "b1", at)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkReminded(context.Background(), "b1", at)
	require.NoError(t, err)
	assert.False(t, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryReminderRepository(t *testing.T) {
	repo := NewMemoryReminderRepository()
	ctx := context.Background()

	reminded, err := repo.HasReminded(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, reminded)

	first, err := repo.MarkReminded(ctx, "b1", time.Now())
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkReminded(ctx, "b1", time.Now())
	require.NoError(t, err)
	assert.False(t, second)

	reminded, err = repo.HasReminded(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, reminded)
}
