// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// committed.  It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	Reference   string `json:"booking_reference"`
	UserID      uint64 `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	EventName   string `json:"event_name"`
	TicketCount int    `json:"ticket_count"`
	TotalAmount string `json:"total_amount"`
	ConfirmedAt string `json:"confirmed_at"`
}
