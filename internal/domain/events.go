package domain

// Channels the shop itself publishes to. The hub accepts arbitrary names;
// these are the two with defined traffic.
const (
	ChannelStock = "stock"
	ChannelAdmin = "admin"
)

// Event envelope types on the wire.
const (
	EventStockUpdate = "STOCK_UPDATE"
	EventNewOrder    = "NEW_ORDER"
)

// Envelope is the tagged wire format delivered to realtime subscribers:
// {"type": "STOCK_UPDATE"|"NEW_ORDER", "data": ...}.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StockUpdate is the STOCK_UPDATE payload for a live item: a full snapshot
// of its current state.
type StockUpdate struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// StockRemoved is the STOCK_UPDATE payload broadcast when an item is
// deleted: the id and a deletion marker, nothing else.
type StockRemoved struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// StockUpdateFor builds the event payload for an item's current state.
func StockUpdateFor(it Item) StockUpdate {
	return StockUpdate{
		ID:       it.ID,
		Name:     it.Name,
		Category: it.Category,
		Price:    it.Price,
		Quantity: it.Quantity,
	}
}

// StockDeleted builds the deletion marker broadcast when an item is removed.
func StockDeleted(id string) StockRemoved {
	return StockRemoved{ID: id, Deleted: true}
}
