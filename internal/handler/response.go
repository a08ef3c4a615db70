package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope wrapping every JSON body returned by the API:
// {success, message?, data?, errors?, pagination?}.
type Response struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	Data       any          `json:"data,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
}

// FieldError reports a validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Pagination is the paging metadata attached to list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes paging metadata; Pages = ceil(Total/Limit).
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func respondList(c echo.Context, data any, p *Pagination) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: p})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: true, Message: message})
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

func respondValidation(c echo.Context, errs []FieldError) error {
	return c.JSON(http.StatusBadRequest, Response{Success: false, Message: "validation failed", Errors: errs})
}

// respondInternal hides failure detail from clients unless the server runs
// in development mode.  The caller is expected to have logged the error.
func respondInternal(c echo.Context, dev bool, err error) error {
	msg := "internal server error"
	if dev && err != nil {
		msg = err.Error()
	}
	return respondError(c, http.StatusInternalServerError, msg)
}
