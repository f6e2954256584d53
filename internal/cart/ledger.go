package cart

// Money represents a monetary value in whole rupiah.
type Money = int64

// StockUnit is one sellable inventory lot as served by the upstream stock
// endpoint. Price and discount are per unit; Available is the quantity on
// hand at the moment the unit is offered for sale.
type StockUnit struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Price     Money  `json:"price"`
	Discount  Money  `json:"discount"`
	Available int    `json:"qty"`
}

// Line is one staged sale item. LineID equals the stock unit id, so a unit
// can appear at most once per cart. MaxQuantity is fixed at insert time.
type Line struct {
	LineID       string `json:"line_id"`
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Size         string `json:"size"`
	UnitPrice    Money  `json:"unit_price"`
	UnitDiscount Money  `json:"unit_discount"`
	Quantity     int    `json:"quantity"`
	MaxQuantity  int    `json:"max_quantity"`
}

// Cart holds the in-progress sale. Lines keep insertion order for display;
// order never affects totals. CustomerID is empty when no member is attached.
type Cart struct {
	Lines      []Line `json:"lines"`
	CustomerID string `json:"customer_id,omitempty"`
}

// AddUnit stages one more piece of the given stock unit. An existing line is
// incremented unless that would exceed its ceiling, in which case the cart is
// left untouched. A new line starts at quantity 1. Units with nothing
// available are ignored. Capacity violations are silent no-ops, not errors;
// the sales screen depends on that.
func (c *Cart) AddUnit(u StockUnit) {
	for i := range c.Lines {
		if c.Lines[i].LineID == u.ID {
			if c.Lines[i].Quantity+1 > c.Lines[i].MaxQuantity {
				return
			}
			c.Lines[i].Quantity++
			return
		}
	}
	if u.Available <= 0 {
		return
	}
	c.Lines = append(c.Lines, Line{
		LineID:       u.ID,
		ProductID:    u.ProductID,
		SKU:          u.SKU,
		Name:         u.Name,
		Size:         u.Size,
		UnitPrice:    u.Price,
		UnitDiscount: u.Discount,
		Quantity:     1,
		MaxQuantity:  u.Available,
	})
}

// SetQuantity replaces a line's quantity with the requested value clamped
// into [0, MaxQuantity]. A clamped result of zero removes the line; the cart
// never holds a zero-quantity line.
func (c *Cart) SetQuantity(lineID string, requested int) {
	for i := range c.Lines {
		if c.Lines[i].LineID != lineID {
			continue
		}
		qty := requested
		if qty < 0 {
			qty = 0
		}
		if qty > c.Lines[i].MaxQuantity {
			qty = c.Lines[i].MaxQuantity
		}
		if qty == 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
		c.Lines[i].Quantity = qty
		return
	}
}

// RemoveLine drops the line unconditionally. Absent lines are a no-op.
func (c *Cart) RemoveLine(lineID string) {
	for i := range c.Lines {
		if c.Lines[i].LineID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and detaches the selected customer.
func (c *Cart) Clear() {
	c.Lines = nil
	c.CustomerID = ""
}

// SetCustomer attaches the member whose loyalty discount may apply at totals
// time.
func (c *Cart) SetCustomer(id string) {
	c.CustomerID = id
}

// ClearCustomer detaches the selected member.
func (c *Cart) ClearCustomer() {
	c.CustomerID = ""
}
