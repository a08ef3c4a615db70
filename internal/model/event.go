package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a ticket pricing class.  Each tier carries its own price and
// remaining inventory on the event row.
type Tier string

// Known tiers.  The events table stores one price and one availability
// column per tier.
const (
	TierRegular Tier = "regular"
	TierVIP     Tier = "vip"
)

// ValidTier reports whether t names a tier the events table knows about.
func ValidTier(t Tier) bool {
	return t == TierRegular || t == TierVIP
}

// Event represents a bookable event as stored in the `events` table.
// Prices are DECIMAL(10,2) columns and therefore use decimal.Decimal to
// avoid floating point drift in totals.
//
// Fields:
//
//	ID               – primary key identifier.
//	Name             – event title.
//	Description      – long form description.
//	Date             – calendar date of the event.
//	Time             – start time ("HH:MM:SS").
//	Location         – city or area.
//	Venue            – venue name.
//	Image            – image token displayed by the client.
//	PriceRegular     – price for a regular ticket.
//	PriceVIP         – price for a VIP ticket.
//	AvailableRegular – remaining regular tickets (never negative).
//	AvailableVIP     – remaining VIP tickets (never negative).
//	Category         – one of the category enum values.
//	OrganizerID      – user who owns the event (nullable).
//	IsActive         – soft delete flag; inactive events are not bookable.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Event struct {
	ID               uint64          // events.id
	Name             string          // events.name
	Description      string          // events.description
	Date             time.Time       // events.date
	Time             string          // events.time
	Location         string          // events.location
	Venue            string          // events.venue
	Image            string          // events.image
	PriceRegular     decimal.Decimal // events.ticket_price_regular
	PriceVIP         decimal.Decimal // events.ticket_price_vip
	AvailableRegular int             // events.available_tickets_regular
	AvailableVIP     int             // events.available_tickets_vip
	Category         string          // events.category
	OrganizerID      *uint64         // events.organizer_id (nullable)
	IsActive         bool            // events.is_active
	CreatedAt        time.Time       // events.created_at
	UpdatedAt        time.Time       // events.updated_at
}

// PriceTable returns the per-tier price map used by the pricing resolver.
// The map is built from the event snapshot, so re-pricing the same snapshot
// always yields the same totals.
func (e *Event) PriceTable() map[Tier]decimal.Decimal {
	return map[Tier]decimal.Decimal{
		TierRegular: e.PriceRegular,
		TierVIP:     e.PriceVIP,
	}
}

// Available returns the remaining inventory for the given tier, or -1 for
// an unknown tier.
func (e *Event) Available(t Tier) int {
	switch t {
	case TierRegular:
		return e.AvailableRegular
	case TierVIP:
		return e.AvailableVIP
	}
	return -1
}
