// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP status codes.
package repository

import "errors"

// ErrEventNotFound is returned when an event does not exist or has been
// soft deleted.  Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when a booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateReference is returned when inserting a booking collides with
// an existing booking reference or QR token.  Callers regenerate both
// identifiers and retry; the error never reaches a client directly.
var ErrDuplicateReference = errors.New("duplicate booking reference")

// ErrInsufficientInventory is returned when a tier does not have enough
// remaining tickets to satisfy a booking line.  Handlers should translate
// this into an HTTP 409 response.
var ErrInsufficientInventory = errors.New("insufficient ticket inventory")
