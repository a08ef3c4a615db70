package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eventbook/event-booking-api/internal/model"
)

// EventRepo provides CRUD operations for events along with the inventory
// adjustments performed during booking creation.  Per-tier prices and
// availability live directly on the event row, so the booking transaction
// locks that row to serialize concurrent decrements.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, name, description, date, time, location, venue, image,
    ticket_price_regular, ticket_price_vip,
    available_tickets_regular, available_tickets_vip,
    category, organizer_id, is_active, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var organizerID sql.NullInt64
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Date, &e.Time, &e.Location, &e.Venue, &e.Image,
		&e.PriceRegular, &e.PriceVIP,
		&e.AvailableRegular, &e.AvailableVIP,
		&e.Category, &organizerID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if organizerID.Valid {
		oid := uint64(organizerID.Int64)
		e.OrganizerID = &oid
	}
	return &e, nil
}

// Create inserts a new event and returns its generated ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) (uint64, error) {
	const q = `INSERT INTO events
        (name, description, date, time, location, venue, image,
         ticket_price_regular, ticket_price_vip,
         available_tickets_regular, available_tickets_vip,
         category, organizer_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var organizer any
	if e.OrganizerID != nil {
		organizer = *e.OrganizerID
	}
	res, err := r.db.ExecContext(ctx, q,
		e.Name, e.Description, e.Date, e.Time, e.Location, e.Venue, e.Image,
		e.PriceRegular, e.PriceVIP,
		e.AvailableRegular, e.AvailableVIP,
		e.Category, organizer,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns an active event by id.  Soft-deleted events behave as if
// they do not exist, so ErrEventNotFound is returned for them as well.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND is_active = true`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return e, err
}

// GetForBookingTx loads an active event inside the booking transaction and
// locks its row.  The lock serializes concurrent bookings touching the same
// event so availability checks and decrements observe a consistent count.
func (r *EventRepo) GetForBookingTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND is_active = true FOR UPDATE`
	e, err := scanEvent(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	return e, err
}

// availabilityColumn maps a tier onto its availability column.  The switch
// doubles as a whitelist so tier strings never reach the SQL text directly.
func availabilityColumn(tier model.Tier) (string, bool) {
	switch tier {
	case model.TierRegular:
		return "available_tickets_regular", true
	case model.TierVIP:
		return "available_tickets_vip", true
	}
	return "", false
}

// DecrementAvailableTx reduces a tier's remaining tickets by quantity within
// the caller's transaction.  The WHERE guard keeps the count from going
// negative; zero affected rows means the tier ran out and the caller must
// roll back with ErrInsufficientInventory.
func (r *EventRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, eventID uint64, tier model.Tier, quantity int) error {
	col, ok := availabilityColumn(tier)
	if !ok {
		return ErrInsufficientInventory
	}
	q := `UPDATE events SET ` + col + ` = ` + col + ` - ? WHERE id = ? AND ` + col + ` >= ?`
	res, err := tx.ExecContext(ctx, q, quantity, eventID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientInventory
	}
	return nil
}

// List returns active events ordered by date ascending with limit/offset
// pagination, matching the public browse ordering.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE is_active = true ORDER BY date ASC, id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of active events.
func (r *EventRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_active = true`).Scan(&n)
	return n, err
}

// EventUpdate carries the optional fields of a partial event update.  Nil
// fields are left untouched.
type EventUpdate struct {
	Name             *string
	Description      *string
	Date             *string
	Time             *string
	Location         *string
	Venue            *string
	Image            *string
	PriceRegular     *decimal.Decimal
	PriceVIP         *decimal.Decimal
	AvailableRegular *int
	AvailableVIP     *int
	Category         *string
}

// Update applies the non-nil fields of upd to an active event.  When no
// fields are set it is a no-op.  ErrEventNotFound is returned when the
// event does not exist or is inactive.
func (r *EventRepo) Update(ctx context.Context, id uint64, upd EventUpdate) error {
	sets := make([]string, 0, 12)
	args := make([]any, 0, 13)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if upd.Time != nil {
		add("time", *upd.Time)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.Venue != nil {
		add("venue", *upd.Venue)
	}
	if upd.Image != nil {
		add("image", *upd.Image)
	}
	if upd.PriceRegular != nil {
		add("ticket_price_regular", *upd.PriceRegular)
	}
	if upd.PriceVIP != nil {
		add("ticket_price_vip", *upd.PriceVIP)
	}
	if upd.AvailableRegular != nil {
		add("available_tickets_regular", *upd.AvailableRegular)
	}
	if upd.AvailableVIP != nil {
		add("available_tickets_vip", *upd.AvailableVIP)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND is_active = true`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing event from an update that changed nothing.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? AND is_active = true`, id).Scan(&exists); err == sql.ErrNoRows {
			return ErrEventNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete marks an event inactive.  Bookings keep referencing the row;
// it is never physically removed.
func (r *EventRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET is_active = false WHERE id = ? AND is_active = true`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}
