package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"sweetshop/internal/domain"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
	"sweetshop/internal/services"
)

// captureSub records every envelope delivered to it, across channels.
type captureSub struct {
	mu   sync.Mutex
	msgs []capturedEnv
}

type capturedEnv struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *captureSub) Send(msg []byte) error {
	var env capturedEnv
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, env)
	s.mu.Unlock()
	return nil
}

func (s *captureSub) Close() {}

func (s *captureSub) events() []capturedEnv {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capturedEnv, len(s.msgs))
	copy(out, s.msgs)
	return out
}

type purchaseFixture struct {
	db    *sqlx.DB
	items *repos.ItemRepo
	svc   *services.PurchaseService
	hub   *realtime.Hub
}

func newPurchase(t *testing.T) *purchaseFixture {
	t.Helper()
	db := memdb(t)
	items := repos.NewItemRepo(db)
	orders := repos.NewOrderRepo(db)
	hub := realtime.NewHub()
	res := services.NewReservationService(items, time.Second)
	return &purchaseFixture{
		db:    db,
		items: items,
		svc:   services.NewPurchaseService(res, orders, hub, time.Second),
		hub:   hub,
	}
}

func (f *purchaseFixture) orderCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.Get(&n, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	return n
}

// Scenario: x1 has qty 5 at price 2.0; buying 3 succeeds with total 6.0,
// leaves qty 2, and publishes STOCK_UPDATE then NEW_ORDER, in that order.
func TestPurchase_Success(t *testing.T) {
	f := newPurchase(t)
	sub := &captureSub{}
	f.hub.Subscribe(domain.ChannelStock, sub)
	f.hub.Subscribe(domain.ChannelAdmin, sub)

	order, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if order.Total != 6.0 {
		t.Fatalf("want total 6.0, got %v", order.Total)
	}
	if order.UserEmail != "u@example.com" || len(order.Lines) != 1 || order.ID == "" {
		t.Fatalf("bad order: %+v", order)
	}

	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 2 {
		t.Fatalf("want quantity 2, got %d", it.Quantity)
	}

	evs := sub.events()
	if len(evs) != 2 {
		t.Fatalf("want 2 events, got %d", len(evs))
	}
	if evs[0].Type != domain.EventStockUpdate || evs[1].Type != domain.EventNewOrder {
		t.Fatalf("wrong event order: %s then %s", evs[0].Type, evs[1].Type)
	}

	var su domain.StockUpdate
	if err := json.Unmarshal(evs[0].Data, &su); err != nil {
		t.Fatal(err)
	}
	if su.ID != "x1" || su.Quantity != 2 {
		t.Fatalf("bad stock event: %+v", su)
	}

	var got domain.Order
	if err := json.Unmarshal(evs[1].Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != order.ID || got.Total != 6.0 {
		t.Fatalf("bad order event: %+v", got)
	}
}

// Scenario: x1 has qty 2; requesting 5 fails with the item named, stock
// untouched, no order, no NEW_ORDER event.
func TestPurchase_InsufficientStock(t *testing.T) {
	f := newPurchase(t)
	if _, err := f.db.Exec(`UPDATE items SET quantity = 2 WHERE id = 'x1'`); err != nil {
		t.Fatal(err)
	}
	admin := &captureSub{}
	f.hub.Subscribe(domain.ChannelAdmin, admin)

	_, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 5}})
	var pe *domain.PurchaseError
	if !errors.As(err, &pe) {
		t.Fatalf("want PurchaseError, got %v", err)
	}
	if pe.ItemID != "x1" || pe.Reason != domain.ReasonInsufficientStock {
		t.Fatalf("bad failure detail: %+v", pe)
	}

	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 2 {
		t.Fatalf("stock changed on failed purchase: %d", it.Quantity)
	}
	if f.orderCount(t) != 0 {
		t.Fatal("order recorded for failed purchase")
	}
	if len(admin.events()) != 0 {
		t.Fatal("NEW_ORDER published for failed purchase")
	}
}

// Scenario: first line reserves, second line hits a missing item; the first
// reservation is released so net stock change is zero, and the stock channel
// sees the decrement followed by the corrective restore.
func TestPurchase_RollbackOnPartialFailure(t *testing.T) {
	f := newPurchase(t)
	stock := &captureSub{}
	f.hub.Subscribe(domain.ChannelStock, stock)

	_, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{
		{ItemID: "x1", Quantity: 1},
		{ItemID: "missing", Quantity: 1},
	})
	var pe *domain.PurchaseError
	if !errors.As(err, &pe) {
		t.Fatalf("want PurchaseError, got %v", err)
	}
	if pe.ItemID != "missing" || pe.Reason != domain.ReasonNotFound {
		t.Fatalf("bad failure detail: %+v", pe)
	}

	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 5 {
		t.Fatalf("want restored quantity 5, got %d", it.Quantity)
	}
	if f.orderCount(t) != 0 {
		t.Fatal("order recorded despite rollback")
	}

	evs := stock.events()
	if len(evs) != 2 {
		t.Fatalf("want decrement + corrective event, got %d", len(evs))
	}
	var first, second domain.StockUpdate
	if err := json.Unmarshal(evs[0].Data, &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(evs[1].Data, &second); err != nil {
		t.Fatal(err)
	}
	if first.Quantity != 4 || second.Quantity != 5 {
		t.Fatalf("want qty 4 then 5, got %d then %d", first.Quantity, second.Quantity)
	}
}

// Duplicate item ids are independent sequential attempts: the second sees
// the first's decrement.
func TestPurchase_DuplicateLinesProcessedInOrder(t *testing.T) {
	f := newPurchase(t)

	order, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{
		{ItemID: "x1", Quantity: 3},
		{ItemID: "x1", Quantity: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("lines merged: %d", len(order.Lines))
	}
	if order.Total != 10.0 {
		t.Fatalf("want total 10.0, got %v", order.Total)
	}

	// a third unit can't be had
	_, err = f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 1}})
	var pe *domain.PurchaseError
	if !errors.As(err, &pe) || pe.Reason != domain.ReasonInsufficientStock {
		t.Fatalf("want insufficient stock on exhausted item, got %v", err)
	}
}

func TestPurchase_EmptyAndInvalidLines(t *testing.T) {
	f := newPurchase(t)

	_, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest for empty basket, got %v", err)
	}

	_, err = f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 0}})
	var pe *domain.PurchaseError
	if !errors.As(err, &pe) || pe.Reason != domain.ReasonInvalidRequest {
		t.Fatalf("want invalid_request purchase failure, got %v", err)
	}
	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 5 {
		t.Fatalf("invalid line touched stock: %d", it.Quantity)
	}
}

// Order totals are frozen at reservation time: a later price edit does not
// change what was recorded.
func TestPurchase_TotalImmuneToLaterPriceChange(t *testing.T) {
	f := newPurchase(t)
	orders := repos.NewOrderRepo(f.db)

	order, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.Exec(`UPDATE items SET price = 99.0 WHERE id = 'x1'`); err != nil {
		t.Fatal(err)
	}

	got, err := orders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 4.0 {
		t.Fatalf("total drifted after price change: %v", got.Total)
	}
	if got.Lines[0].UnitPrice != 2.0 {
		t.Fatalf("line price drifted: %v", got.Lines[0].UnitPrice)
	}
}

// When the order store breaks after every line has reserved, the failure is
// escalated as ErrStoreUnavailable: the decremented stock is deliberately
// held (the insert may have committed), and no NEW_ORDER is announced.
func TestPurchase_PersistFailureHoldsStock(t *testing.T) {
	f := newPurchase(t)
	stock := &captureSub{}
	admin := &captureSub{}
	f.hub.Subscribe(domain.ChannelStock, stock)
	f.hub.Subscribe(domain.ChannelAdmin, admin)

	if _, err := f.db.Exec(`DROP TABLE order_lines`); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 2}})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}

	// stock stays decremented for manual reconciliation, not auto-released
	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 3 {
		t.Fatalf("want held quantity 3, got %d", it.Quantity)
	}
	if len(admin.events()) != 0 {
		t.Fatal("NEW_ORDER published for unrecorded order")
	}
	// the per-line stock event already went out before the insert
	if len(stock.events()) != 1 {
		t.Fatalf("want 1 stock event, got %d", len(stock.events()))
	}
	if f.orderCount(t) != 0 {
		t.Fatal("order header survived the failed insert")
	}
}

func TestPurchase_CancelledContext(t *testing.T) {
	f := newPurchase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Purchase(ctx, "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: 1}})
	if err == nil {
		t.Fatal("want error from cancelled context")
	}
	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity != 5 {
		t.Fatalf("cancelled purchase leaked stock: %d", it.Quantity)
	}
}

// Many buyers racing over one item: granted quantities never exceed the
// starting stock and the final count reconciles exactly.
func TestPurchase_ConcurrentBuyersNeverOversell(t *testing.T) {
	f := newPurchase(t)
	const start = 12
	if _, err := f.db.Exec(`UPDATE items SET quantity = ? WHERE id = 'x1'`, start); err != nil {
		t.Fatal(err)
	}

	const buyers = 10
	const each = 3

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Purchase(context.Background(), "u-1", "u@example.com", []domain.LineItem{{ItemID: "x1", Quantity: each}})
			if err == nil {
				mu.Lock()
				granted += each
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	it, _ := f.items.Get(context.Background(), "x1")
	if it.Quantity < 0 {
		t.Fatalf("quantity negative: %d", it.Quantity)
	}
	if granted > start {
		t.Fatalf("oversold: %d of %d", granted, start)
	}
	if it.Quantity != start-granted {
		t.Fatalf("stock does not reconcile: start=%d granted=%d final=%d", start, granted, it.Quantity)
	}
	if f.orderCount(t) != granted/each {
		t.Fatalf("order count mismatch: %d orders for %d granted", f.orderCount(t), granted)
	}
}
