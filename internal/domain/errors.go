package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a referenced item (or order) that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks input rejected before any store mutation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAlreadyExists marks an insert refused because the id is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStoreUnavailable marks a transient persistence failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InsufficientStockError reports a reservation the store refused because the
// requested quantity exceeds what is available.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

// PurchaseError names the line that blocked a purchase so the caller can
// adjust quantities and retry without guessing.
type PurchaseError struct {
	ItemID string
	Reason string
	Err    error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase failed on item %s (%s): %v", e.ItemID, e.Reason, e.Err)
}

func (e *PurchaseError) Unwrap() error { return e.Err }

// Failure reason codes carried on PurchaseError and over the API.
const (
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidRequest    = "invalid_request"
	ReasonStoreUnavailable  = "store_unavailable"
)

// ReasonFor maps an error from the reservation path to its reason code.
func ReasonFor(err error) string {
	var ins *InsufficientStockError
	switch {
	case errors.As(err, &ins):
		return ReasonInsufficientStock
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrInvalidRequest):
		return ReasonInvalidRequest
	default:
		return ReasonStoreUnavailable
	}
}
