package cart

// DefaultMemberDiscountBps is the loyalty rate applied to the subtotal when a
// member is attached, in basis points. 200 bps matches the 2% used by the
// system of record.
const DefaultMemberDiscountBps = 200

// Totals is the derived pricing preview for the sales screen. It is
// recomputed from scratch on every read and never stored; the upstream API
// remains the sole authority on the final transaction price.
type Totals struct {
	TotalItems     int   `json:"total_items"`
	Subtotal       Money `json:"subtotal"`
	MemberDiscount Money `json:"member_discount"`
	GrandTotal     Money `json:"grand_total"`
}

// ComputeTotals derives order totals from the cart state. The member discount
// applies only when a customer is attached and no line carries a product
// discount: a promotional price overrides the loyalty rate, they never stack.
func ComputeTotals(c Cart, memberDiscountBps int) Totals {
	var t Totals
	hasProductDiscount := false
	for _, l := range c.Lines {
		t.TotalItems += l.Quantity
		t.Subtotal += Money(l.Quantity) * (l.UnitPrice - l.UnitDiscount)
		if l.UnitDiscount > 0 {
			hasProductDiscount = true
		}
	}
	if c.CustomerID != "" && !hasProductDiscount && memberDiscountBps > 0 {
		t.MemberDiscount = t.Subtotal * Money(memberDiscountBps) / 10000
	}
	t.GrandTotal = t.Subtotal - t.MemberDiscount
	return t
}
