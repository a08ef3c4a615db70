package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventbook/event-booking-api/internal/model"
)

// BookingRepo provides persistence for bookings.  Creation always happens
// inside a caller-owned transaction together with the inventory decrement;
// reads join the related user and event rows so handlers can render a
// booking without further queries.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and booking date on the
// provided record.  A unique-index collision on the booking reference or
// QR token surfaces as ErrDuplicateReference so the caller can regenerate
// both identifiers and retry.  The caller must commit or rollback.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	tickets, err := json.Marshal(b.Tickets)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings
        (user_id, event_id, tickets, total_amount, status, payment_status, qr_code, booking_reference)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.EventID, tickets, b.TotalAmount, b.Status, b.PaymentStatus, b.QRToken, b.Reference)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the booking date so the response carries the DB timestamp.
	return tx.QueryRowContext(ctx, `SELECT booking_date FROM bookings WHERE id = ?`, b.ID).Scan(&b.BookingDate)
}

// BookingDetail is a booking joined with its user and event for display.
// User fields are omitted in customer-facing listings where the caller is
// the user.
type BookingDetail struct {
	ID            uint64             `json:"id"`
	UserID        uint64             `json:"user_id"`
	EventID       uint64             `json:"event_id"`
	Tickets       []model.TicketLine `json:"tickets"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Reference     string             `json:"booking_reference"`
	QRToken       string             `json:"qr_code"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"payment_status"`
	BookingDate   time.Time          `json:"booking_date"`
	UserName      *string            `json:"user_name,omitempty"`
	UserEmail     *string            `json:"user_email,omitempty"`
	EventName     *string            `json:"event_name,omitempty"`
	EventDate     *string            `json:"event_date,omitempty"`
	EventLocation *string            `json:"event_location,omitempty"`
	EventImage    *string            `json:"event_image,omitempty"`
}

const detailColumns = `b.id, b.user_id, b.event_id, b.tickets, b.total_amount,
    b.booking_reference, b.qr_code, b.status, b.payment_status, b.booking_date,
    u.name, u.email, e.name, e.date, e.location, e.image`

func scanDetail(row interface{ Scan(...any) error }) (*BookingDetail, error) {
	var d BookingDetail
	var rawTickets []byte
	var userName, userEmail, eventName, eventLocation, eventImage sql.NullString
	var eventDate sql.NullTime
	err := row.Scan(
		&d.ID, &d.UserID, &d.EventID, &rawTickets, &d.TotalAmount,
		&d.Reference, &d.QRToken, &d.Status, &d.PaymentStatus, &d.BookingDate,
		&userName, &userEmail, &eventName, &eventDate, &eventLocation, &eventImage,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawTickets, &d.Tickets); err != nil {
		return nil, err
	}
	if userName.Valid {
		d.UserName = &userName.String
	}
	if userEmail.Valid {
		d.UserEmail = &userEmail.String
	}
	if eventName.Valid {
		d.EventName = &eventName.String
	}
	if eventDate.Valid {
		iso := eventDate.Time.UTC().Format("2006-01-02")
		d.EventDate = &iso
	}
	if eventLocation.Valid {
		d.EventLocation = &eventLocation.String
	}
	if eventImage.Valid {
		d.EventImage = &eventImage.String
	}
	return &d, nil
}

// GetByID returns a single booking with its joined user and event details.
// Ownership checks are left to the caller, which knows the requester's
// role.  ErrBookingNotFound is returned when no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
        FROM bookings b
        LEFT JOIN users u ON u.id = b.user_id
        LEFT JOIN events e ON e.id = b.event_id
        WHERE b.id = ?`
	d, err := scanDetail(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return d, err
}

// ListByUser returns the user's bookings newest first with limit/offset
// pagination.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
        FROM bookings b
        LEFT JOIN users u ON u.id = b.user_id
        LEFT JOIN events e ON e.id = b.event_id
        WHERE b.user_id = ?
        ORDER BY b.booking_date DESC, b.id DESC
        LIMIT ? OFFSET ?`
	return r.list(ctx, q, userID, limit, offset)
}

// ListAll returns all bookings newest first.  Admin capability only; the
// handler enforces the role.
func (r *BookingRepo) ListAll(ctx context.Context, limit, offset int) ([]*BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
        FROM bookings b
        LEFT JOIN users u ON u.id = b.user_id
        LEFT JOIN events e ON e.id = b.event_id
        ORDER BY b.booking_date DESC, b.id DESC
        LIMIT ? OFFSET ?`
	return r.list(ctx, q, limit, offset)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]*BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]*BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateStatus transitions a booking's status.  The current status is read
// under a row lock and checked against the transition table, so concurrent
// updates cannot race a terminal state.  model.ErrInvalidTransition is
// returned for moves the table does not allow.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ? FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrBookingNotFound
	}
	if err != nil {
		return err
	}
	if !model.CanTransition(current, status) {
		return model.ErrInvalidTransition
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Count returns the number of bookings, optionally restricted to one user.
func (r *BookingRepo) Count(ctx context.Context, userID *uint64) (int, error) {
	var n int
	var err error
	if userID != nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = ?`, *userID).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n)
	}
	return n, err
}
