package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbook/event-booking-api/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

const decrementVIP = `UPDATE events SET available_tickets_vip = available_tickets_vip - ? WHERE id = ? AND available_tickets_vip >= ?`

func TestDecrementAvailableTxSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementVIP)).
		WithArgs(1, 7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.DecrementAvailableTx(context.Background(), tx, 7, model.TierVIP, 1)
	assert.NoError(t, err)
	_ = tx.Rollback()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementAvailableTxInsufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)

	// The guarded WHERE matches no row when the tier cannot cover the
	// quantity, so the count never goes negative.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(decrementVIP)).
		WithArgs(1, 7, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.DecrementAvailableTx(context.Background(), tx, 7, model.TierVIP, 1)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	_ = tx.Rollback()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementAvailableTxUnknownTier(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)

	// An unknown tier never reaches the SQL text.
	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.DecrementAvailableTx(context.Background(), tx, 7, model.Tier("student"), 1)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	_ = tx.Rollback()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForBookingTxNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.GetForBookingTx(context.Background(), tx, 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_ = tx.Rollback()

	require.NoError(t, mock.ExpectationsWereMet())
}
