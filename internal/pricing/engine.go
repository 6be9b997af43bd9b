package pricing

// RateFunc resolves the VAT rate for a line. Callers may return a fraction in
// [0,1] or a percentage in (1,100]; NormalizeVATRate reconciles both.
type RateFunc func(line CartLine) float64

// LineAmounts carries the computed monetary components of a single line in one
// display currency. PreDiscount fields feed the struck-through display only and
// never contribute to totals.
type LineAmounts struct {
	BaseUnitPrice          float64
	BaseAmount             float64
	TaxAmount              float64
	TaxedAmount            float64
	PreDiscountAmount      float64
	PreDiscountTaxedAmount float64
}

// Totals aggregates a cart in one display currency.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// DisplayTotals is the mode-filtered view of Totals surfaced to the operator.
type DisplayTotals struct {
	ExVAT  *float64 `json:"exVat,omitempty"`
	Tax    *float64 `json:"tax,omitempty"`
	IncVAT *float64 `json:"incVat,omitempty"`
}

// NormalizeVATRate maps resolver output into [0,1]. Percentages in (1,100] are
// divided by 100; negatives and non-finite values clamp to 0; anything above
// 100 clamps to the full rate.
func NormalizeVATRate(rate float64) float64 {
	r := Clamp(rate)
	if r > 1 && r <= 100 {
		return r / 100
	}
	if r > 100 {
		return 1
	}
	return r
}

// ComputeLine calculates the per-line amounts in the given display currency.
// All inputs are clamped before multiplication; the function never panics and
// performs no currency conversion.
func ComputeLine(line CartLine, currency Currency, rate RateFunc) LineAmounts {
	r := 0.0
	if rate != nil {
		r = NormalizeVATRate(rate(line))
	}
	qty := Clamp(line.Qty)
	unit := line.UnitPrice(currency)
	base := unit * qty
	preUnit := line.PreDiscountUnitPrice(currency)
	preBase := preUnit * qty
	return LineAmounts{
		BaseUnitPrice:          unit,
		BaseAmount:             base,
		TaxAmount:              base * r,
		TaxedAmount:            base * (1 + r),
		PreDiscountAmount:      preBase,
		PreDiscountTaxedAmount: preBase * (1 + r),
	}
}

// ComputeTotals aggregates the whole cart in one display currency:
// subtotal = Σ baseAmount, tax = Σ baseAmount*rate, total = subtotal + tax.
func ComputeTotals(cart Cart, currency Currency, rate RateFunc) Totals {
	var t Totals
	for _, line := range cart {
		amounts := ComputeLine(line, currency, rate)
		t.Subtotal += amounts.BaseAmount
		t.Tax += amounts.TaxAmount
	}
	t.Total = t.Subtotal + t.Tax
	return t
}

// CompanyTotals pairs a company with its share of the cart totals.
type CompanyTotals struct {
	Company Company `json:"company"`
	Totals  Totals  `json:"totals"`
}

// ComputeTotalsByCompany groups lines by company first and applies the identical
// per-line formula per group, in first-seen company order. The split is
// informational: it drives the split-totals display and routing previews, it is
// not a charge instruction.
func ComputeTotalsByCompany(cart Cart, currency Currency, rate RateFunc) []CompanyTotals {
	index := make(map[Company]int)
	out := make([]CompanyTotals, 0, 2)
	for _, line := range cart {
		i, ok := index[line.CompanyKey]
		if !ok {
			i = len(out)
			index[line.CompanyKey] = i
			out = append(out, CompanyTotals{Company: line.CompanyKey})
		}
		amounts := ComputeLine(line, currency, rate)
		out[i].Totals.Subtotal += amounts.BaseAmount
		out[i].Totals.Tax += amounts.TaxAmount
	}
	for i := range out {
		out[i].Totals.Total = out[i].Totals.Subtotal + out[i].Totals.Tax
	}
	return out
}

// Display filters the totals down to the amounts the active VAT display mode
// surfaces. Charging always uses the tax-inclusive total regardless of mode.
func (t Totals) Display(mode VATDisplayMode) DisplayTotals {
	ex := t.Subtotal
	tax := t.Tax
	inc := t.Total
	switch mode {
	case VATDisplayEx:
		return DisplayTotals{ExVAT: &ex}
	case VATDisplayBoth:
		return DisplayTotals{ExVAT: &ex, Tax: &tax, IncVAT: &inc}
	default:
		return DisplayTotals{IncVAT: &inc}
	}
}

// FixedRate returns a RateFunc that applies the same VAT rate to every line.
func FixedRate(rate float64) RateFunc {
	return func(CartLine) float64 { return rate }
}
