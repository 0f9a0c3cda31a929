package billing

import "math"

// Tolerance is the largest gap at which two money values still match.
const Tolerance = 0.01

// Totals holds the derived amounts of a document. It is recomputed on every
// edit and never cached.
type Totals struct {
	Subtotal      float64 `json:"subtotal" yaml:"subtotal"`
	AfterDiscount float64 `json:"after_discount" yaml:"after_discount"`
	Total         float64 `json:"total" yaml:"total"`
}

// LineTotal returns quantity × price less the line discount.
func LineTotal(item LineItem) float64 {
	qty := num(item.Quantity)
	price := num(item.UnitPrice)
	discount := num(item.Discount)
	return qty * price * (1 - discount/100)
}

// ComputeTotals aggregates line items, then applies the order level discount
// and tax percentages. Values are not clamped or rounded.
func ComputeTotals(items []LineItem, discount, tax float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += LineTotal(item)
	}
	afterDiscount := subtotal * (1 - num(discount)/100)
	return Totals{
		Subtotal:      subtotal,
		AfterDiscount: afterDiscount,
		Total:         afterDiscount * (1 + num(tax)/100),
	}
}

// ComputeTotal is a shorthand for ComputeTotals(...).Total.
func ComputeTotal(items []LineItem, discount, tax float64) float64 {
	return ComputeTotals(items, discount, tax).Total
}

// Round2 rounds half away from zero to two decimals. Use it for display only.
func Round2(v float64) float64 {
	return math.Round(num(v)*100) / 100
}

// WithinTolerance reports whether actual matches expected within Tolerance.
func WithinTolerance(expected, actual float64) bool {
	return math.Abs(num(expected)-num(actual)) <= Tolerance
}

// num treats NaN and infinities as missing values.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
