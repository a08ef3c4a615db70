package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/idempotency"
	"github.com/eventbook/event-booking-api/internal/repository"
)

const duplicateKeyErr = "Error 1062 (23000): Duplicate entry 'BK1700000000000ABCDE' for key 'bookings.booking_reference'"

func newBookingHandlerTest(t *testing.T, idem *idempotency.Store) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	if idem == nil {
		idem = idempotency.NewStore(nil, time.Hour)
	}
	h := NewBookingHandler(config.Config{Env: "test"},
		repository.NewEventRepo(db), repository.NewBookingRepo(db), idem)
	return h, mock
}

func newCreateContext(t *testing.T, body string, header map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(5))
	c.Set("role", "user")
	return c, rec
}

func lockedEventRows(availableRegular, availableVIP int) *sqlmock.Rows {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "name", "description", "date", "time", "location", "venue", "image",
		"ticket_price_regular", "ticket_price_vip",
		"available_tickets_regular", "available_tickets_vip",
		"category", "organizer_id", "is_active", "created_at", "updated_at",
	}).AddRow(
		1, "Summer Concert", "Open air concert", now, "19:00:00", "Berlin", "Waldbühne", "🎭",
		"50.00", "75.00",
		availableRegular, availableVIP,
		"music", nil, true, now, now,
	)
}

func bookingDetailRows() *sqlmock.Rows {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tickets := `[{"type":"regular","quantity":2,"unit_price":"50"}]`
	return sqlmock.NewRows([]string{
		"id", "user_id", "event_id", "tickets", "total_amount",
		"booking_reference", "qr_code", "status", "payment_status", "booking_date",
		"user_name", "user_email", "event_name", "event_date", "event_location", "event_image",
	}).AddRow(
		11, 5, 1, tickets, "100.00",
		"BK1700000000000ABCDE", "QR1700000000000ABCDEFGHI", "confirmed", "paid", now,
		"Jane Doe", "jane@example.com", "Summer Concert", now, "Berlin", "🎭",
	)
}

// A reference collision must trigger exactly one regeneration before the
// booking commits; the mock accepts the second insert only.
func TestCreateBookingRetriesOnceOnReferenceCollision(t *testing.T) {
	h, mock := newBookingHandlerTest(t, nil)

	created := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(lockedEventRows(100, 50))
	mock.ExpectExec("UPDATE events SET available_tickets_regular").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(errors.New(duplicateKeyErr))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT booking_date FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"booking_date"}).AddRow(created))
	mock.ExpectCommit()
	mock.ExpectQuery("LEFT JOIN users").WillReturnRows(bookingDetailRows())

	c, rec := newCreateContext(t, `{"eventId":1,"tickets":[{"type":"regular","quantity":2}]}`, nil)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"booking_reference"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Exhausting the retry budget surfaces as a 500 with the transaction rolled
// back; no further inserts are attempted.
func TestCreateBookingRetryExhaustion(t *testing.T) {
	h, mock := newBookingHandlerTest(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(lockedEventRows(100, 50))
	mock.ExpectExec("UPDATE events SET available_tickets_regular").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO bookings").WillReturnError(errors.New(duplicateKeyErr))
	}
	mock.ExpectRollback()

	c, rec := newCreateContext(t, `{"eventId":1,"tickets":[{"type":"regular","quantity":2}]}`, nil)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A decrement matching zero rows means the tier ran out; the whole booking
// rolls back, the client sees 409 and the idempotency lock is released.
func TestCreateBookingInsufficientInventoryRollsBack(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	idem := idempotency.NewStore(rdb, time.Hour)
	h, mock := newBookingHandlerTest(t, idem)

	rmock.ExpectSetNX("idem:bookings:5:retry-1", "LOCK", idemLockTTL).SetVal(true)
	rmock.ExpectDel("idem:bookings:5:retry-1").SetVal(1)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(lockedEventRows(100, 1))
	mock.ExpectExec("UPDATE events SET available_tickets_vip").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newCreateContext(t,
		`{"eventId":1,"tickets":[{"type":"vip","quantity":2}]}`,
		map[string]string{"Idempotency-Key": "retry-1"})
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "vip")
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, rmock.ExpectationsWereMet())
}

// An unknown tier fails pricing after the event loads; nothing is decremented
// and nothing is inserted.
func TestCreateBookingUnknownTier(t *testing.T) {
	h, mock := newBookingHandlerTest(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(lockedEventRows(100, 50))
	mock.ExpectRollback()

	c, rec := newCreateContext(t, `{"eventId":1,"tickets":[{"type":"student","quantity":1}]}`, nil)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown ticket tier")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingEventNotFound(t *testing.T) {
	h, mock := newBookingHandlerTest(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := newCreateContext(t, `{"eventId":42,"tickets":[{"type":"regular","quantity":1}]}`, nil)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingValidation(t *testing.T) {
	h, mock := newBookingHandlerTest(t, nil)

	c, rec := newCreateContext(t, `{"eventId":0,"tickets":[]}`, nil)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventId")
	assert.Contains(t, rec.Body.String(), "tickets")
	require.NoError(t, mock.ExpectationsWereMet())
}

// A stored result under the same Idempotency-Key replays the original
// response without touching the database.
func TestCreateBookingIdempotentReplay(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	idem := idempotency.NewStore(rdb, time.Hour)
	h, mock := newBookingHandlerTest(t, idem)

	stored := `{"success":true,"data":{"id":11}}`
	rmock.ExpectSetNX("idem:bookings:5:replay-1", "LOCK", idemLockTTL).SetVal(false)
	rmock.ExpectGet("idem:bookings:5:replay-1").SetVal("RES:" + stored)

	c, rec := newCreateContext(t,
		`{"eventId":1,"tickets":[{"type":"regular","quantity":2}]}`,
		map[string]string{"Idempotency-Key": "replay-1"})
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, stored, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, rmock.ExpectationsWereMet())
}
