package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/idempotency"
	"github.com/eventbook/event-booking-api/internal/model"
	"github.com/eventbook/event-booking-api/internal/pricing"
	"github.com/eventbook/event-booking-api/internal/queue"
	"github.com/eventbook/event-booking-api/internal/reference"
	"github.com/eventbook/event-booking-api/internal/repository"
	queue_publisher "github.com/eventbook/event-booking-api/internal/service"
)

// maxReferenceAttempts bounds the regenerate-and-retry loop on booking
// reference collisions.  One retry is the expected case; more than a
// couple of collisions in a row means something else is wrong.
const maxReferenceAttempts = 3

// idemLockTTL bounds how long an in-flight booking holds its
// Idempotency-Key before a client may retry from scratch.
const idemLockTTL = 30 * time.Second

// BookingHandler implements booking creation and listing.  Creation runs
// price resolution, the availability check, the inventory decrement and
// the booking insert inside a single transaction so concurrent bookings
// for the same event observe a serializable ordering with respect to
// inventory.
type BookingHandler struct {
	Cfg      config.Config
	Events   *repository.EventRepo
	Bookings *repository.BookingRepo
	Idem     *idempotency.Store
}

// NewBookingHandler constructs a BookingHandler.  Idem may be backed by a
// nil Redis client, in which case idempotency replay is disabled.
func NewBookingHandler(cfg config.Config, events *repository.EventRepo, bookings *repository.BookingRepo, idem *idempotency.Store) *BookingHandler {
	if events == nil || bookings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Events: events, Bookings: bookings, Idem: idem}
}

// ----- DTOs -----

type ticketLineReq struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type createBookingReq struct {
	EventID uint64          `json:"eventId"`
	Tickets []ticketLineReq `json:"tickets"`
}

// Create handles POST /api/bookings.
//
// An optional Idempotency-Key header makes retries safe: the first request
// under a key locks it, the committed response is stored, and any replay
// returns that stored response instead of booking twice.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	errs := make([]FieldError, 0, 2)
	if req.EventID == 0 {
		errs = append(errs, FieldError{Field: "eventId", Message: "eventId must be a positive integer"})
	}
	if len(req.Tickets) == 0 {
		errs = append(errs, FieldError{Field: "tickets", Message: "tickets must be a non-empty array"})
	}
	lines := make([]pricing.Line, 0, len(req.Tickets))
	for i, t := range req.Tickets {
		if t.Quantity < 1 {
			errs = append(errs, FieldError{
				Field:   "tickets[" + strconv.Itoa(i) + "].quantity",
				Message: "quantity must be a positive integer",
			})
			continue
		}
		lines = append(lines, pricing.Line{Type: model.Tier(t.Type), Quantity: t.Quantity})
	}
	if len(errs) > 0 {
		return respondValidation(c, errs)
	}

	ctx := c.Request().Context()

	// Idempotency-Key replay: a key that already finished returns the
	// stored response; a key still in flight is a conflict.
	idemKey := c.Request().Header.Get("Idempotency-Key")
	if idemKey != "" && h.Idem.Enabled() {
		acquired, err := h.Idem.AcquireLock(ctx, userID, idemKey, idemLockTTL)
		if err != nil {
			c.Logger().Warnf("bookings: idempotency lock: %v", err)
		} else if !acquired {
			if payload, found, err := h.Idem.GetResult(ctx, userID, idemKey); err == nil && found {
				return c.JSONBlob(http.StatusCreated, []byte(payload))
			}
			return respondError(c, http.StatusConflict, "a booking with this idempotency key is already in progress")
		}
	}
	// The release runs on its own context: when a failing request was
	// caused by the client disconnecting, the request context is already
	// cancelled and the lock would otherwise stay held for its full TTL.
	releaseIdem := func() {
		if idemKey != "" && h.Idem.Enabled() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = h.Idem.Release(rctx, userID, idemKey)
		}
	}

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		releaseIdem()
		c.Logger().Errorf("bookings: begin tx: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the event row: availability is re-checked and decremented under
	// this lock, so two bookings cannot both take the last ticket.
	event, err := h.Events.GetForBookingTx(ctx, tx, req.EventID)
	if err != nil {
		releaseIdem()
		if err == repository.ErrEventNotFound {
			return respondError(c, http.StatusNotFound, "event not found")
		}
		c.Logger().Errorf("bookings: load event %d: %v", req.EventID, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	prices := event.PriceTable()
	total, err := pricing.ResolveTotal(prices, lines)
	if err != nil {
		releaseIdem()
		var unknownTier *pricing.UnknownTierError
		var badQty *pricing.InvalidQuantityError
		switch {
		case errors.As(err, &unknownTier):
			return respondValidation(c, []FieldError{{
				Field:   "tickets",
				Message: "unknown ticket tier " + strconv.Quote(string(unknownTier.Tier)),
			}})
		case errors.As(err, &badQty):
			return respondValidation(c, []FieldError{{
				Field:   "tickets",
				Message: "quantity must be a positive integer",
			}})
		}
		c.Logger().Errorf("bookings: resolve total: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	priced, err := pricing.PricedLines(prices, lines)
	if err != nil {
		releaseIdem()
		c.Logger().Errorf("bookings: snapshot lines: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	for _, l := range lines {
		if err := h.Events.DecrementAvailableTx(ctx, tx, event.ID, l.Type, l.Quantity); err != nil {
			releaseIdem()
			if err == repository.ErrInsufficientInventory {
				return respondError(c, http.StatusConflict,
					"not enough "+string(l.Type)+" tickets available")
			}
			c.Logger().Errorf("bookings: decrement inventory: %v", err)
			return respondInternal(c, h.Cfg.IsDevelopment(), err)
		}
	}

	booking := &model.Booking{
		UserID:        userID,
		EventID:       event.ID,
		Tickets:       priced,
		TotalAmount:   total,
		Status:        model.StatusConfirmed,
		PaymentStatus: model.PaymentPaid,
	}
	// References are timestamp+random, so a collision is possible.  The
	// unique index reports it and we regenerate both identifiers.
	for attempt := 0; ; attempt++ {
		booking.Reference, err = reference.NewBookingReference()
		if err == nil {
			booking.QRToken, err = reference.NewQRToken()
		}
		if err != nil {
			releaseIdem()
			c.Logger().Errorf("bookings: generate reference: %v", err)
			return respondInternal(c, h.Cfg.IsDevelopment(), err)
		}
		err = h.Bookings.CreateTx(ctx, tx, booking)
		if err == nil {
			break
		}
		if err == repository.ErrDuplicateReference && attempt < maxReferenceAttempts-1 {
			continue
		}
		releaseIdem()
		c.Logger().Errorf("bookings: insert: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}

	if err := tx.Commit(); err != nil {
		releaseIdem()
		c.Logger().Errorf("bookings: commit: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	committed = true

	detail, err := h.Bookings.GetByID(ctx, booking.ID)
	if err != nil {
		// The booking exists; fall back to the bare record.
		c.Logger().Warnf("bookings: load created %d: %v", booking.ID, err)
		return respondData(c, http.StatusCreated, booking)
	}

	ticketCount := 0
	for _, l := range priced {
		ticketCount += l.Quantity
	}
	eventName := ""
	if detail.EventName != nil {
		eventName = *detail.EventName
	}
	// Best effort: a broker outage must not fail a committed booking.
	_ = queue_publisher.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		UserID:      userID,
		EventID:     event.ID,
		EventName:   eventName,
		TicketCount: ticketCount,
		TotalAmount: total.StringFixed(2),
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	})

	if idemKey != "" && h.Idem.Enabled() {
		if payload, err := json.Marshal(Response{Success: true, Data: detail}); err == nil {
			if err := h.Idem.SaveResult(ctx, userID, idemKey, string(payload)); err != nil {
				c.Logger().Warnf("bookings: save idempotency result: %v", err)
			}
		}
	}

	return respondData(c, http.StatusCreated, detail)
}

// MyBookings handles GET /api/bookings/my-bookings with page/limit
// pagination, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	page, limit, offset := pageParams(c)

	ctx := c.Request().Context()
	total, err := h.Bookings.Count(ctx, &userID)
	if err != nil {
		c.Logger().Errorf("bookings: count for user %d: %v", userID, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	details, err := h.Bookings.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		c.Logger().Errorf("bookings: list for user %d: %v", userID, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondList(c, details, NewPagination(page, limit, total))
}

// Get handles GET /api/bookings/:id.  A booking is visible to its owner
// and to admins.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid booking id")
	}
	detail, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return respondError(c, http.StatusNotFound, "booking not found")
		}
		c.Logger().Errorf("bookings: get %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	if detail.UserID != userID && !isAdmin(c) {
		return respondError(c, http.StatusForbidden, "forbidden")
	}
	return respondData(c, http.StatusOK, detail)
}

// QRCode handles GET /api/bookings/:id/qr.  It renders the booking's QR
// token as a PNG for check-in scanning.
func (h *BookingHandler) QRCode(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid booking id")
	}
	detail, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return respondError(c, http.StatusNotFound, "booking not found")
		}
		c.Logger().Errorf("bookings: get %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	if detail.UserID != userID && !isAdmin(c) {
		return respondError(c, http.StatusForbidden, "forbidden")
	}
	png, err := qrcode.Encode(detail.QRToken, qrcode.Medium, 256)
	if err != nil {
		c.Logger().Errorf("bookings: encode qr for %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// ListAll handles GET /api/bookings (admin only).
func (h *BookingHandler) ListAll(c echo.Context) error {
	page, limit, offset := pageParams(c)

	ctx := c.Request().Context()
	total, err := h.Bookings.Count(ctx, nil)
	if err != nil {
		c.Logger().Errorf("bookings: count all: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	details, err := h.Bookings.ListAll(ctx, limit, offset)
	if err != nil {
		c.Logger().Errorf("bookings: list all: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondList(c, details, NewPagination(page, limit, total))
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/bookings/:id/status (admin only).
// Transitions outside the state machine are rejected with 409.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid booking id")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	if !model.ValidStatus(req.Status) {
		return respondValidation(c, []FieldError{{Field: "status", Message: "unknown status"}})
	}

	ctx := c.Request().Context()
	if err := h.Bookings.UpdateStatus(ctx, id, req.Status); err != nil {
		switch {
		case err == repository.ErrBookingNotFound:
			return respondError(c, http.StatusNotFound, "booking not found")
		case errors.Is(err, model.ErrInvalidTransition):
			return respondError(c, http.StatusConflict, "status transition not allowed")
		}
		c.Logger().Errorf("bookings: update status %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	detail, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		c.Logger().Errorf("bookings: load updated %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondData(c, http.StatusOK, detail)
}
