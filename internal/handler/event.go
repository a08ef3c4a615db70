package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/model"
	"github.com/eventbook/event-booking-api/internal/repository"
)

// EventHandler implements the event CRUD endpoints.  Reads are public;
// writes require the admin role (enforced by middleware on the route
// group).
type EventHandler struct {
	Cfg    config.Config
	Events *repository.EventRepo
}

func NewEventHandler(cfg config.Config, events *repository.EventRepo) *EventHandler {
	if events == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Cfg: cfg, Events: events}
}

// ----- DTOs -----

// tierPrices groups the per-tier prices in requests and responses.
type tierPrices struct {
	Regular decimal.Decimal `json:"regular"`
	VIP     decimal.Decimal `json:"vip"`
}

// tierCounts groups the per-tier availability counts.
type tierCounts struct {
	Regular int `json:"regular"`
	VIP     int `json:"vip"`
}

type eventResponse struct {
	ID               uint64     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Date             string     `json:"date"`
	Time             string     `json:"time"`
	Location         string     `json:"location"`
	Venue            string     `json:"venue"`
	Image            string     `json:"image"`
	TicketPrice      tierPrices `json:"ticket_price"`
	AvailableTickets tierCounts `json:"available_tickets"`
	Category         string     `json:"category"`
	OrganizerID      *uint64    `json:"organizer_id,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date.UTC().Format("2006-01-02"),
		Time:        e.Time,
		Location:    e.Location,
		Venue:       e.Venue,
		Image:       e.Image,
		TicketPrice: tierPrices{Regular: e.PriceRegular, VIP: e.PriceVIP},
		AvailableTickets: tierCounts{
			Regular: e.AvailableRegular,
			VIP:     e.AvailableVIP,
		},
		Category:    e.Category,
		OrganizerID: e.OrganizerID,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
	}
}

type createEventReq struct {
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Date             string      `json:"date"`
	Time             string      `json:"time"`
	Location         string      `json:"location"`
	Venue            string      `json:"venue"`
	Image            string      `json:"image"`
	TicketPrice      tierPrices  `json:"ticket_price"`
	AvailableTickets *tierCounts `json:"available_tickets"`
	Category         string      `json:"category"`
}

var validCategories = map[string]bool{
	"music": true, "sports": true, "conference": true,
	"theater": true, "festival": true, "other": true,
}

// List handles GET /api/events with page/limit pagination.  Only active
// events are returned, ordered by date.
func (h *EventHandler) List(c echo.Context) error {
	page, limit, offset := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	total, err := h.Events.Count(ctx)
	if err != nil {
		c.Logger().Errorf("events: count: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	events, err := h.Events.List(ctx, limit, offset)
	if err != nil {
		c.Logger().Errorf("events: list: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return respondList(c, out, NewPagination(page, limit, total))
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid event id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return respondError(c, http.StatusNotFound, "event not found")
		}
		c.Logger().Errorf("events: get %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondData(c, http.StatusOK, toEventResponse(e))
}

// Create handles POST /api/events (admin only).  The caller becomes the
// event's organizer.
func (h *EventHandler) Create(c echo.Context) error {
	organizerID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}

	errs := make([]FieldError, 0, 6)
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(req.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		errs = append(errs, FieldError{Field: "date", Message: "date must be YYYY-MM-DD"})
	}
	if req.Time == "" {
		errs = append(errs, FieldError{Field: "time", Message: "time is required"})
	}
	if strings.TrimSpace(req.Location) == "" {
		errs = append(errs, FieldError{Field: "location", Message: "location is required"})
	}
	if strings.TrimSpace(req.Venue) == "" {
		errs = append(errs, FieldError{Field: "venue", Message: "venue is required"})
	}
	if req.TicketPrice.Regular.IsNegative() || req.TicketPrice.VIP.IsNegative() {
		errs = append(errs, FieldError{Field: "ticket_price", Message: "prices must not be negative"})
	}
	if req.Category != "" && !validCategories[req.Category] {
		errs = append(errs, FieldError{Field: "category", Message: "unknown category"})
	}
	if req.AvailableTickets != nil && (req.AvailableTickets.Regular < 0 || req.AvailableTickets.VIP < 0) {
		errs = append(errs, FieldError{Field: "available_tickets", Message: "availability must not be negative"})
	}
	if len(errs) > 0 {
		return respondValidation(c, errs)
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	e := &model.Event{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Date:         date,
		Time:         req.Time,
		Location:     strings.TrimSpace(req.Location),
		Venue:        strings.TrimSpace(req.Venue),
		Image:        req.Image,
		PriceRegular: req.TicketPrice.Regular,
		PriceVIP:     req.TicketPrice.VIP,
		// Availability defaults match the table defaults.
		AvailableRegular: 100,
		AvailableVIP:     50,
		Category:         req.Category,
		OrganizerID:      &organizerID,
	}
	if e.Image == "" {
		e.Image = "🎭"
	}
	if e.Category == "" {
		e.Category = "other"
	}
	if req.AvailableTickets != nil {
		e.AvailableRegular = req.AvailableTickets.Regular
		e.AvailableVIP = req.AvailableTickets.VIP
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Events.Create(ctx, e)
	if err != nil {
		c.Logger().Errorf("events: create: %v", err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	created, err := h.Events.GetByID(ctx, id)
	if err != nil {
		c.Logger().Errorf("events: load created %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondData(c, http.StatusCreated, toEventResponse(created))
}

type updateEventReq struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	Date             *string          `json:"date"`
	Time             *string          `json:"time"`
	Location         *string          `json:"location"`
	Venue            *string          `json:"venue"`
	Image            *string          `json:"image"`
	PriceRegular     *decimal.Decimal `json:"ticket_price_regular"`
	PriceVIP         *decimal.Decimal `json:"ticket_price_vip"`
	AvailableRegular *int             `json:"available_tickets_regular"`
	AvailableVIP     *int             `json:"available_tickets_vip"`
	Category         *string          `json:"category"`
}

// Update handles PUT /api/events/:id (admin only).  Absent fields are left
// unchanged.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid event id")
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid body")
	}
	errs := make([]FieldError, 0, 4)
	if req.Date != nil {
		if _, err := time.Parse("2006-01-02", *req.Date); err != nil {
			errs = append(errs, FieldError{Field: "date", Message: "date must be YYYY-MM-DD"})
		}
	}
	if req.Category != nil && !validCategories[*req.Category] {
		errs = append(errs, FieldError{Field: "category", Message: "unknown category"})
	}
	if (req.PriceRegular != nil && req.PriceRegular.IsNegative()) ||
		(req.PriceVIP != nil && req.PriceVIP.IsNegative()) {
		errs = append(errs, FieldError{Field: "ticket_price", Message: "prices must not be negative"})
	}
	if (req.AvailableRegular != nil && *req.AvailableRegular < 0) ||
		(req.AvailableVIP != nil && *req.AvailableVIP < 0) {
		errs = append(errs, FieldError{Field: "available_tickets", Message: "availability must not be negative"})
	}
	if len(errs) > 0 {
		return respondValidation(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	upd := repository.EventUpdate{
		Name:             req.Name,
		Description:      req.Description,
		Date:             req.Date,
		Time:             req.Time,
		Location:         req.Location,
		Venue:            req.Venue,
		Image:            req.Image,
		PriceRegular:     req.PriceRegular,
		PriceVIP:         req.PriceVIP,
		AvailableRegular: req.AvailableRegular,
		AvailableVIP:     req.AvailableVIP,
		Category:         req.Category,
	}
	if err := h.Events.Update(ctx, id, upd); err != nil {
		if err == repository.ErrEventNotFound {
			return respondError(c, http.StatusNotFound, "event not found")
		}
		c.Logger().Errorf("events: update %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	updated, err := h.Events.GetByID(ctx, id)
	if err != nil {
		c.Logger().Errorf("events: load updated %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondData(c, http.StatusOK, toEventResponse(updated))
}

// Delete handles DELETE /api/events/:id (admin only).  Events are soft
// deleted; existing bookings keep referencing the row.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondError(c, http.StatusBadRequest, "invalid event id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.SoftDelete(ctx, id); err != nil {
		if err == repository.ErrEventNotFound {
			return respondError(c, http.StatusNotFound, "event not found")
		}
		c.Logger().Errorf("events: delete %d: %v", id, err)
		return respondInternal(c, h.Cfg.IsDevelopment(), err)
	}
	return respondMessage(c, http.StatusOK, "event deleted")
}
