package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sweetshop/internal/domain"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
)

// CatalogService is the admin-facing item surface. Every stock-affecting
// edit broadcasts a stock event, same as purchases do, so shoppers watching
// the stock channel stay current through external edits too.
type CatalogService struct {
	Items   *repos.ItemRepo
	Hub     *realtime.Hub
	Timeout time.Duration
}

func NewCatalogService(items *repos.ItemRepo, hub *realtime.Hub, timeout time.Duration) *CatalogService {
	return &CatalogService{Items: items, Hub: hub, Timeout: timeout}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Item, error) {
	opCtx, cancel := s.bound(ctx)
	defer cancel()
	return s.Items.List(opCtx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.Item, error) {
	opCtx, cancel := s.bound(ctx)
	defer cancel()
	return s.Items.Get(opCtx, id)
}

func (s *CatalogService) Create(ctx context.Context, it domain.Item) (domain.Item, error) {
	if it.Name == "" || it.Price < 0 || it.Quantity < 0 {
		return domain.Item{}, fmt.Errorf("%w: name required, price and quantity must be non-negative", domain.ErrInvalidRequest)
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}

	opCtx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.Items.Insert(opCtx, it); err != nil {
		return domain.Item{}, err
	}
	s.broadcast(it)
	return it, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	opCtx, cancel := s.bound(ctx)
	defer cancel()

	it, err := s.Items.Get(opCtx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	if patch.Price != nil {
		it.Price = *patch.Price
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	if it.Name == "" || it.Price < 0 || it.Quantity < 0 {
		return domain.Item{}, fmt.Errorf("%w: name required, price and quantity must be non-negative", domain.ErrInvalidRequest)
	}

	if err := s.Items.Update(opCtx, it); err != nil {
		return domain.Item{}, err
	}
	s.broadcast(it)
	return it, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	opCtx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.Items.Delete(opCtx, id); err != nil {
		return err
	}
	s.Hub.Publish(domain.ChannelStock, domain.Envelope{
		Type: domain.EventStockUpdate,
		Data: domain.StockDeleted(id),
	})
	return nil
}

func (s *CatalogService) broadcast(it domain.Item) {
	s.Hub.Publish(domain.ChannelStock, domain.Envelope{
		Type: domain.EventStockUpdate,
		Data: domain.StockUpdateFor(it),
	})
}

func (s *CatalogService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	t := s.Timeout
	if t <= 0 {
		t = 3 * time.Second
	}
	return context.WithTimeout(ctx, t)
}
