// Package pricing computes booking totals from an event's per-tier price
// table.  The resolver is a pure function over an event snapshot, so the
// same snapshot and lines always produce the same total; that property is
// what makes audits and idempotent re-pricing possible.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eventbook/event-booking-api/internal/model"
)

// UnknownTierError is returned when a requested ticket line names a tier
// the event does not price.
type UnknownTierError struct {
	Tier model.Tier
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown ticket tier %q", string(e.Tier))
}

// InvalidQuantityError is returned when a ticket line carries a quantity
// that is not a positive integer.
type InvalidQuantityError struct {
	Tier     model.Tier
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for tier %q", e.Quantity, string(e.Tier))
}

// Line is a requested ticket line before pricing: a tier and how many
// tickets of it the caller wants.
type Line struct {
	Type     model.Tier
	Quantity int
}

// ResolveTotal prices the given lines against the price table and returns
// the total amount.  Lines are validated in order; the first unknown tier
// or non-positive quantity aborts the computation.
func ResolveTotal(prices map[model.Tier]decimal.Decimal, lines []Line) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 1 {
			return decimal.Zero, &InvalidQuantityError{Tier: l.Type, Quantity: l.Quantity}
		}
		price, ok := prices[l.Type]
		if !ok {
			return decimal.Zero, &UnknownTierError{Tier: l.Type}
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total, nil
}

// PricedLines returns the lines annotated with the unit price each tier had
// at pricing time.  It performs the same validation as ResolveTotal and is
// used to snapshot prices into the stored booking.
func PricedLines(prices map[model.Tier]decimal.Decimal, lines []Line) ([]model.TicketLine, error) {
	out := make([]model.TicketLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{Tier: l.Type, Quantity: l.Quantity}
		}
		price, ok := prices[l.Type]
		if !ok {
			return nil, &UnknownTierError{Tier: l.Type}
		}
		out = append(out, model.TicketLine{Type: l.Type, Quantity: l.Quantity, UnitPrice: price})
	}
	return out, nil
}
