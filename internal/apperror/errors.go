package apperror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors, for use with errors.Is(). Structured types below unwrap to
// these so handlers can map whole categories to status codes.
var (
	// ErrValidation is returned for malformed input. It is always raised
	// before any storage access.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers both genuinely absent records and records that
	// belong to another company. Tenant-isolation misses are never
	// distinguishable from absence.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate unique fields and duplicate
	// idempotent records (a second initial-balance transaction).
	ErrConflict = errors.New("conflict")

	// ErrVersionConflict is returned when an optimistic-lock check fails.
	// Callers must re-fetch and retry; stale writes are never merged.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInsufficientInventory is returned when a build, transfer or
	// outbound would consume more than is on hand.
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a field-level validation error.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the missing entity kind and identifier.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError for the given entity kind.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a duplicate unique field or idempotency violation.
type ConflictError struct {
	Entity  string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Conflict builds a ConflictError.
func Conflict(entity, message string) error {
	return &ConflictError{Entity: entity, Message: message}
}

// VersionConflictError reports an optimistic-lock mismatch.
type VersionConflictError struct {
	Entity   string
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s was modified concurrently: expected version %d, found %d",
		e.Entity, e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// ShortfallItem describes one component (or finished-goods SKU) that
// cannot cover the requested quantity.
type ShortfallItem struct {
	ComponentID   uuid.UUID       `json:"component_id"`
	ComponentName string          `json:"component_name"`
	Required      decimal.Decimal `json:"required"`
	Available     decimal.Decimal `json:"available"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

// InsufficientInventoryError carries the concrete shortfall items so the
// caller can present an actionable message instead of a bare failure.
type InsufficientInventoryError struct {
	Items []ShortfallItem
}

func (e *InsufficientInventoryError) Error() string {
	if len(e.Items) == 1 {
		it := e.Items[0]
		return fmt.Sprintf("insufficient inventory for %s: available %s, required %s",
			it.ComponentName, it.Available.String(), it.Required.String())
	}
	return fmt.Sprintf("insufficient inventory for %d items", len(e.Items))
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }
