package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports service liveness and database connectivity for
// load balancers and monitoring systems.
type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{DB: db} }

// Health handles GET /health.  It pings the database with a short timeout
// and reports {status, database} so operators can tell an app failure from
// a database outage.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	database := "Connected"
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		database = "Disconnected"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{
		"status":   http.StatusText(status),
		"database": database,
	})
}
