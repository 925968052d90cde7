package domain

// Item is a sweet in the shop catalog. Quantity is only ever mutated through
// the reservation engine's conditional decrement / release operations.
type Item struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Category  string  `db:"category" json:"category"`
	Price     float64 `db:"price" json:"price"`
	Quantity  int     `db:"quantity" json:"quantity"`
	CreatedAt string  `db:"created_at" json:"-"`
	UpdatedAt string  `db:"updated_at" json:"-"`
}

// ItemPatch carries a partial item update; nil fields are left unchanged.
type ItemPatch struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

// LineItem is one (item, quantity) pair within a purchase request.
type LineItem struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// ReservedLine is the snapshot taken when stock is reserved for one line.
// Name and unit price are captured at reservation time so later catalog
// edits never alter an already-reserved line.
type ReservedLine struct {
	ItemID    string  `db:"item_id" json:"item_id"`
	Name      string  `db:"item_name" json:"name"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}

// Reservation is the result of one successful reserve: the line snapshot
// plus the item as it stands right after the decrement (for stock events).
type Reservation struct {
	Line ReservedLine
	Item Item
}

// Order is an immutable record of a completed purchase. Total is always
// computed server-side from the reserved lines.
type Order struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	UserEmail string         `db:"user_email" json:"user_email"`
	Lines     []ReservedLine `json:"items"`
	Total     float64        `db:"total" json:"total"`
	CreatedAt string         `db:"created_at" json:"created_at"`
}

// ComputeTotal sums quantity x unit price over the reserved lines.
func ComputeTotal(lines []ReservedLine) float64 {
	total := 0.0
	for _, ln := range lines {
		total += ln.UnitPrice * float64(ln.Quantity)
	}
	return total
}
