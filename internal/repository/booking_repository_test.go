package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbook/event-booking-api/internal/model"
)

func testBooking() *model.Booking {
	return &model.Booking{
		UserID:  5,
		EventID: 1,
		Tickets: []model.TicketLine{
			{Type: model.TierRegular, Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
		TotalAmount:   decimal.NewFromInt(100),
		Reference:     "BK1700000000000ABCDE",
		QRToken:       "QR1700000000000ABCDEFGHI",
		Status:        model.StatusConfirmed,
		PaymentStatus: model.PaymentPaid,
	}
}

func TestCreateTxSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)

	created := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT booking_date FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"booking_date"}).AddRow(created))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	b := testBooking()
	require.NoError(t, repo.CreateTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(11), b.ID)
	assert.Equal(t, created, b.BookingDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxDuplicateReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)

	// MySQL reports a unique-index collision as error 1062; callers use the
	// sentinel to regenerate the identifiers and retry the insert.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'BK1700000000000ABCDE' for key 'bookings.booking_reference'"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.CreateTx(context.Background(), tx, testBooking())
	assert.ErrorIs(t, err, ErrDuplicateReference)
	_ = tx.Rollback()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)

	// completed is terminal; the row lock read feeds the transition table
	// and the UPDATE never runs.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.StatusCompleted))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), 11, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusAllowsConfiguredTransition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.StatusConfirmed))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(model.StatusCompleted, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), 11, model.StatusCompleted)
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
