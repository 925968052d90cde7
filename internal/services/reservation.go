package services

import (
	"context"
	"fmt"
	"time"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
	"sweetshop/internal/repos"
)

// ReservationService owns the only write paths to item quantity: the atomic
// conditional decrement (reserve) and its compensation (release).
type ReservationService struct {
	Items   *repos.ItemRepo
	Timeout time.Duration
}

func NewReservationService(items *repos.ItemRepo, timeout time.Duration) *ReservationService {
	return &ReservationService{Items: items, Timeout: timeout}
}

func (s *ReservationService) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 3 * time.Second
	}
	return s.Timeout
}

// Reserve decrements the item's stock by qty if and only if enough is
// available, and snapshots name and unit price at that instant. Non-positive
// quantities are rejected before the store is touched.
func (s *ReservationService) Reserve(ctx context.Context, itemID string, qty int) (domain.Reservation, error) {
	if qty <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidRequest, qty)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	it, err := s.Items.ConditionalDecrement(opCtx, itemID, qty)
	if err != nil {
		return domain.Reservation{}, err
	}
	return domain.Reservation{
		Line: domain.ReservedLine{ItemID: it.ID, Name: it.Name, Quantity: qty, UnitPrice: it.Price},
		Item: it,
	}, nil
}

// Release restores previously reserved stock after a later failure in the
// same request. Best effort: it never fails the caller, and it runs on a
// fresh context so a cancelled purchase still compensates before returning.
// The restored item and true are returned when the restore landed.
func (s *ReservationService) Release(itemID string, qty int) (domain.Item, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()

	it, err := s.Items.Increment(ctx, itemID, qty)
	if err != nil {
		applog.Error(nil, "reservation.release.fail", err, map[string]any{"item": itemID, "qty": qty})
		return domain.Item{}, false
	}
	return it, true
}
