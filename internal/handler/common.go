package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/event-booking-api/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		// JWT numeric claims decode as float64.
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated caller carries the admin role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// pageParams parses ?page and ?limit with sane defaults and caps, returning
// the pair plus the derived SQL offset.
func pageParams(c echo.Context) (page, limit, offset int) {
	page = 1
	limit = 10
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	offset = (page - 1) * limit
	return page, limit, offset
}
