package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// modernc sqlite returns SQLITE_BUSY under concurrent writers; a single
	// connection serializes them (and keeps ":memory:" a single database
	// across the pool in tests).
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo sweets if the catalog is empty (idempotent; safe every start)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Catalog items. The CHECK on quantity is a backstop; the only write path
-- that decrements it is the conditional decrement in ItemRepo.
CREATE TABLE IF NOT EXISTS items(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

-- Orders are immutable once inserted; no status column, no update path.
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  user_email TEXT NOT NULL,
  total NUMERIC NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(user_email);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

-- Line snapshots. item_id has no FK to items: an order outlives catalog
-- deletions. position preserves request order.
CREATE TABLE IF NOT EXISTS order_lines(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  item_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, position)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM items`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo sweets")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO items(id,name,category,price,quantity) VALUES
	  ('choc-truffle','Chocolate Truffle','chocolate',2.50,40),
	  ('straw-fudge','Strawberry Fudge','fudge',3.00,25),
	  ('lemon-drop','Lemon Drop','hard-candy',0.75,120),
	  ('caramel-swirl','Caramel Swirl','caramel',1.80,60),
	  ('mint-humbug','Mint Humbug','hard-candy',0.90,80)`)
	return tx.Commit()
}
