package intake

import (
	"bytes"

	"github.com/noah-isme/kasir-bff/internal/common"
)

// Field is a numeric form value as the intake screen posts it. Form controls
// submit strings, so a Field accepts either a JSON string or a bare number
// and defers parsing to the coercion step. Blank or non-numeric values
// coerce to zero; the form stays usable while partially filled.
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	*f = Field(bytes.Trim(data, `"`))
	return nil
}

// Int64 coerces the field to a whole rupiah amount, zero on garbage.
func (f Field) Int64() int64 {
	return common.ParseInt64OrZero(string(f))
}

// Float64 coerces the field to a percentage, zero on garbage.
func (f Field) Float64() float64 {
	return common.ParseFloatOrZero(string(f))
}

// LineInput is one product row as posted by the intake form.
type LineInput struct {
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	Size             string `json:"size"`
	Qty              Field  `json:"qty"`
	Capital          Field  `json:"capital"`
	Price            Field  `json:"price"`
	DiscountCustomer Field  `json:"discount_customer"`
	Exp              string `json:"exp"`
}

// BatchInput is the intake form state sent for a cost preview.
type BatchInput struct {
	DiscountSupplier Field       `json:"discount_supplier"`
	PPN              Field       `json:"ppn"`
	Product          []LineInput `json:"product"`
}

// Batch coerces the stringly form fields into the strictly numeric batch the
// allocator operates on. Stringy numbers never cross this boundary.
func (in BatchInput) Batch() Batch {
	b := Batch{
		Lines:                 make([]Line, 0, len(in.Product)),
		SupplierDiscountTotal: in.DiscountSupplier.Int64(),
		TaxPercent:            in.PPN.Float64(),
	}
	for _, p := range in.Product {
		b.Lines = append(b.Lines, Line{
			SKU:              p.SKU,
			Name:             p.Name,
			UnitCapital:      p.Capital.Int64(),
			UnitPrice:        p.Price.Int64(),
			Quantity:         p.Qty.Int64(),
			CustomerDiscount: p.DiscountCustomer.Int64(),
		})
	}
	return b
}
