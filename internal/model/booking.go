package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Booking status values stored in the bookings.status enum.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment status values stored in the bookings.payment_status enum.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the transition table.  Handlers translate it into an HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid status transition")

// statusTransitions is the explicit transition table for booking statuses.
// Cancelled and completed are terminal.
var statusTransitions = map[string]map[string]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCompleted: true, StatusCancelled: true},
	StatusCancelled: {},
	StatusCompleted: {},
}

// ValidStatus reports whether s is one of the known booking statuses.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether a booking may move from one status to
// another.  Self transitions are rejected along with everything not listed
// in the table.
func CanTransition(from, to string) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// TicketLine is one ordered entry of a booking's ticket selection.  The
// full slice is marshalled into the bookings.tickets JSON column exactly as
// requested, preserving order.  UnitPrice is captured from the event's price
// table at booking time so later price edits never change a stored total.
type TicketLine struct {
	Type      Tier            `json:"type"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Booking records a user's ticket purchase for a single event.  The total
// is the sum of unit price times quantity over the lines, fixed at booking
// time.
type Booking struct {
	ID            uint64          `json:"id"`                // bookings.id
	UserID        uint64          `json:"user_id"`           // bookings.user_id
	EventID       uint64          `json:"event_id"`          // bookings.event_id
	Tickets       []TicketLine    `json:"tickets"`           // bookings.tickets
	TotalAmount   decimal.Decimal `json:"total_amount"`      // bookings.total_amount
	Reference     string          `json:"booking_reference"` // bookings.booking_reference
	QRToken       string          `json:"qr_code"`           // bookings.qr_code
	Status        string          `json:"status"`            // bookings.status
	PaymentStatus string          `json:"payment_status"`    // bookings.payment_status
	Notes         *string         `json:"notes,omitempty"`   // bookings.notes (nullable)
	BookingDate   time.Time       `json:"booking_date"`      // bookings.booking_date
}
