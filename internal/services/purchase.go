package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
)

// PurchaseService drives the end-to-end purchase protocol: reserve each line
// in request order, publish stock updates as they happen, persist the order,
// then announce it to admins.
type PurchaseService struct {
	Res     *ReservationService
	Orders  *repos.OrderRepo
	Hub     *realtime.Hub
	Timeout time.Duration
}

func NewPurchaseService(res *ReservationService, orders *repos.OrderRepo, hub *realtime.Hub, timeout time.Duration) *PurchaseService {
	return &PurchaseService{Res: res, Orders: orders, Hub: hub, Timeout: timeout}
}

// Purchase reserves stock for every line, in order, and records the order.
//
// On any line failure every prior reservation is released (with one
// corrective stock event each) and the offending item is named in the
// returned *domain.PurchaseError. Persistence failure after all lines have
// reserved is escalated as domain.ErrStoreUnavailable: stock is NOT
// auto-released (the insert may have committed), the reserved set is logged
// for manual reconciliation.
func (s *PurchaseService) Purchase(ctx context.Context, userID, userEmail string, lines []domain.LineItem) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no line items", domain.ErrInvalidRequest)
	}

	reserved := make([]domain.ReservedLine, 0, len(lines))
	for _, li := range lines {
		if err := ctx.Err(); err != nil {
			s.rollback(reserved)
			return nil, fmt.Errorf("purchase cancelled: %w", err)
		}
		rsv, err := s.Res.Reserve(ctx, li.ItemID, li.Quantity)
		if err != nil {
			s.rollback(reserved)
			return nil, &domain.PurchaseError{ItemID: li.ItemID, Reason: domain.ReasonFor(err), Err: err}
		}
		reserved = append(reserved, rsv.Line)
		// Shoppers see the decrement immediately, not when the whole
		// purchase completes.
		s.Hub.Publish(domain.ChannelStock, domain.Envelope{
			Type: domain.EventStockUpdate,
			Data: domain.StockUpdateFor(rsv.Item),
		})
	}

	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserEmail: userEmail,
		Lines:     reserved,
		Total:     domain.ComputeTotal(reserved),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	opCtx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()
	if err := s.Orders.Insert(opCtx, order); err != nil {
		// Stock is already committed; releasing here could double-free if
		// the insert actually landed. Hold the stock and alert instead.
		applog.Error(nil, "order.persist.fail", err, map[string]any{
			"order_id": order.ID,
			"user":     userEmail,
			"lines":    reserved,
		})
		return nil, fmt.Errorf("%w: order not recorded after full reservation: %v", domain.ErrStoreUnavailable, err)
	}

	s.Hub.Publish(domain.ChannelAdmin, domain.Envelope{Type: domain.EventNewOrder, Data: order})
	return order, nil
}

// rollback releases every reserved line and broadcasts one corrective stock
// event per item reflecting the restored quantity.
func (s *PurchaseService) rollback(reserved []domain.ReservedLine) {
	for _, ln := range reserved {
		it, ok := s.Res.Release(ln.ItemID, ln.Quantity)
		if !ok {
			continue
		}
		s.Hub.Publish(domain.ChannelStock, domain.Envelope{
			Type: domain.EventStockUpdate,
			Data: domain.StockUpdateFor(it),
		})
	}
}

func (s *PurchaseService) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 3 * time.Second
	}
	return s.Timeout
}
