package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sweetshop/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// Insert writes the order header and all line snapshots in one transaction:
// either the whole order lands or none of it does. Inventory is never
// touched here.
func (r *OrderRepo) Insert(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders(id, user_id, user_email, total, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, o.ID, o.UserID, o.UserEmail, o.Total, o.CreatedAt); err != nil {
		return err
	}
	for i, ln := range o.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines(order_id, position, item_id, item_name, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, o.ID, i, ln.ItemID, ln.Name, ln.Quantity, ln.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `
		SELECT id, user_id, user_email, total, created_at
		FROM orders WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}
	if o.Lines, err = r.lines(ctx, id); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// ListByEmail returns a purchaser's orders, newest first.
func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, user_email, total, created_at
		FROM orders WHERE user_email = ?
		ORDER BY created_at DESC
	`, email)
}

// ListLatest returns the most recent orders for the admin view.
func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, `
		SELECT id, user_id, user_email, total, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	var out []domain.Order
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := r.lines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (r *OrderRepo) lines(ctx context.Context, orderID string) ([]domain.ReservedLine, error) {
	var lines []domain.ReservedLine
	err := r.db.SelectContext(ctx, &lines, `
		SELECT item_id, item_name, quantity, unit_price
		FROM order_lines
		WHERE order_id = ?
		ORDER BY position
	`, orderID)
	return lines, err
}
