package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"

	"sweetshop/internal/domain"
)

type ItemRepo struct{ db *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

const itemCols = `id, name, category, price, quantity, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ItemRepo) Get(ctx context.Context, id string) (domain.Item, error) {
	var it domain.Item
	err := r.db.GetContext(ctx, &it, `SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return it, err
}

func (r *ItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	var out []domain.Item
	err := r.db.SelectContext(ctx, &out, `SELECT `+itemCols+` FROM items ORDER BY name`)
	return out, err
}

// ConditionalDecrement subtracts "by" units only if enough stock exists,
// as a single conditional UPDATE. The guard lives in the WHERE clause, never
// in application code, so two concurrent purchases can't both pass a stale
// read and drive quantity negative. Returns the item as it stands right
// after the decrement.
func (r *ItemRepo) ConditionalDecrement(ctx context.Context, id string, by int) (domain.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity >= ?
	`, by, id, by)
	if err != nil {
		return domain.Item{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Distinguish a missing item from a refused decrement.
		var avail int
		err := tx.GetContext(ctx, &avail, `SELECT quantity FROM items WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return domain.Item{}, err
		}
		return domain.Item{}, &domain.InsufficientStockError{ItemID: id, Requested: by, Available: avail}
	}

	var it domain.Item
	if err := tx.GetContext(ctx, &it, `SELECT `+itemCols+` FROM items WHERE id = ?`, id); err != nil {
		return domain.Item{}, err
	}
	return it, tx.Commit()
}

// Increment restores stock released by a failed purchase. Returns the item
// after the restore so the caller can broadcast the corrected quantity.
func (r *ItemRepo) Increment(ctx context.Context, id string, by int) (domain.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, by, id)
	if err != nil {
		return domain.Item{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	var it domain.Item
	if err := tx.GetContext(ctx, &it, `SELECT `+itemCols+` FROM items WHERE id = ?`, id); err != nil {
		return domain.Item{}, err
	}
	return it, tx.Commit()
}

func (r *ItemRepo) Insert(ctx context.Context, it domain.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items(id, name, category, price, quantity)
		VALUES (?, ?, ?, ?, ?)
	`, it.ID, it.Name, it.Category, it.Price, it.Quantity)
	if isConstraintConflict(err) {
		return fmt.Errorf("item %s: %w", it.ID, domain.ErrAlreadyExists)
	}
	return err
}

// isConstraintConflict reports a primary-key or unique-constraint refusal
// (extended result codes SQLITE_CONSTRAINT_PRIMARYKEY / _UNIQUE).
func isConstraintConflict(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && (se.Code() == 1555 || se.Code() == 2067)
}

func (r *ItemRepo) Update(ctx context.Context, it domain.Item) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET name = ?, category = ?, price = ?, quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, it.Name, it.Category, it.Price, it.Quantity, it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
