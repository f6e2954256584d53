package intake

// Line is one product row in a purchase batch. Amounts are whole rupiah per
// unit, as entered on the intake form.
type Line struct {
	SKU              string
	Name             string
	UnitCapital      int64
	UnitPrice        int64
	Quantity         int64
	CustomerDiscount int64
}

// Batch is one supplier delivery: the rows plus the two batch-level figures
// the supplier quotes once for the whole order.
type Batch struct {
	Lines                 []Line
	SupplierDiscountTotal int64
	TaxPercent            float64
}

// LineCost is the derived cost breakdown for one row. Allocation steps up to
// the per-unit discount use integer floor division; tax and everything after
// it is computed in floating point. The split matches the system of record
// exactly, this preview must agree digit for digit with what the API server
// later persists.
type LineCost struct {
	SKU                 string  `json:"sku"`
	Name                string  `json:"name"`
	ItemGross           int64   `json:"item_gross"`
	DiscountPortion     int64   `json:"discount_portion"`
	DiscountPerUnit     int64   `json:"discount_per_unit"`
	BaseCapital         int64   `json:"base_capital"`
	Tax                 float64 `json:"tax"`
	FinalCapitalPerUnit float64 `json:"final_capital_per_unit"`
	SellingPerUnit      int64   `json:"selling_per_unit"`
	MarginPerUnit       float64 `json:"margin_per_unit"`
	MarginPercent       float64 `json:"margin_percent"`
	TotalCost           float64 `json:"total_cost"`
	TotalSelling        int64   `json:"total_selling"`
	TotalMargin         float64 `json:"total_margin"`
}

// BatchCost aggregates the per-line breakdowns for the summary panel.
type BatchCost struct {
	Lines        []LineCost `json:"lines"`
	TotalGross   int64      `json:"total_gross"`
	TotalCost    float64    `json:"total_cost"`
	TotalSelling int64      `json:"total_selling"`
	TotalMargin  float64    `json:"total_margin"`
}

// Allocate distributes the batch-level supplier discount across lines in
// proportion to each line's gross value, applies tax to the discounted
// capital, and derives per-unit cost and margin.
//
// Floor division can leave part of the supplier discount unallocated; the
// remainder is dropped, never reassigned to a line. The system of record
// rounds the same way, so reconciling the remainder here would make the
// preview disagree with the persisted figures.
func Allocate(b Batch) BatchCost {
	out := BatchCost{Lines: make([]LineCost, 0, len(b.Lines))}
	for _, l := range b.Lines {
		out.TotalGross += l.UnitCapital * l.Quantity
	}
	for _, l := range b.Lines {
		lc := LineCost{
			SKU:       l.SKU,
			Name:      l.Name,
			ItemGross: l.UnitCapital * l.Quantity,
		}
		if out.TotalGross > 0 && b.SupplierDiscountTotal > 0 {
			lc.DiscountPortion = lc.ItemGross * b.SupplierDiscountTotal / out.TotalGross
		}
		if l.Quantity > 0 {
			lc.DiscountPerUnit = lc.DiscountPortion / l.Quantity
		}
		lc.BaseCapital = l.UnitCapital - lc.DiscountPerUnit
		if b.TaxPercent > 0 {
			lc.Tax = float64(lc.BaseCapital) * b.TaxPercent / 100
		}
		lc.FinalCapitalPerUnit = float64(lc.BaseCapital) + lc.Tax
		lc.SellingPerUnit = l.UnitPrice - l.CustomerDiscount
		lc.MarginPerUnit = float64(lc.SellingPerUnit) - lc.FinalCapitalPerUnit
		if lc.FinalCapitalPerUnit > 0 {
			lc.MarginPercent = lc.MarginPerUnit / lc.FinalCapitalPerUnit * 100
		}
		lc.TotalCost = lc.FinalCapitalPerUnit * float64(l.Quantity)
		lc.TotalSelling = lc.SellingPerUnit * l.Quantity
		lc.TotalMargin = lc.MarginPerUnit * float64(l.Quantity)

		out.TotalCost += lc.TotalCost
		out.TotalSelling += lc.TotalSelling
		out.TotalMargin += lc.TotalMargin
		out.Lines = append(out.Lines, lc)
	}
	return out
}
