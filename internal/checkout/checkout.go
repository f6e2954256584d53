package checkout

import (
	"github.com/noah-isme/kasir-bff/internal/cart"
)

// Item is one transaction row in the submission payload. Only identities and
// quantity travel upstream; the API server prices the sale itself.
type Item struct {
	ProductID string `json:"product_id"`
	StockID   string `json:"stock_id"`
	Qty       int    `json:"qty"`
}

// Payload is the transaction submission contract.
type Payload struct {
	CustomerID  string `json:"customer_id"`
	Transaction []Item `json:"transaction"`
}

// BuildPayload projects the cart into the submission shape. The locally
// computed totals are deliberately absent, they are a preview and the server
// never trusts them.
func BuildPayload(c cart.Cart) Payload {
	p := Payload{
		CustomerID:  c.CustomerID,
		Transaction: make([]Item, 0, len(c.Lines)),
	}
	for _, l := range c.Lines {
		p.Transaction = append(p.Transaction, Item{
			ProductID: l.ProductID,
			StockID:   l.LineID,
			Qty:       l.Quantity,
		})
	}
	return p
}
