package pricing

import "math"

// Company identifies which of the two parallel ledgers a cart line was sourced from.
type Company string

const (
	CompanyOfficial   Company = "official"
	CompanyUnofficial Company = "unofficial"
)

// Currency is a display or settlement currency. The two currencies are fully
// independent; no conversion between them happens anywhere in this module.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyLBP Currency = "LBP"
)

// VATDisplayMode controls which amounts are surfaced to the operator. It never
// changes what is charged: charging always uses the tax-inclusive total.
type VATDisplayMode string

const (
	VATDisplayEx   VATDisplayMode = "ex"
	VATDisplayInc  VATDisplayMode = "inc"
	VATDisplayBoth VATDisplayMode = "both"
)

// CartLine is one priced item instance in the active sale.
//
// Qty is the UOM-resolved quantity: the quantity the operator entered multiplied
// by the unit-of-measure factor. ResolveQty is the only place that multiplication
// happens; callers must never pass a raw entered quantity here.
type CartLine struct {
	CompanyKey Company `json:"companyKey" validate:"required,oneof=official unofficial"`
	ItemID     string  `json:"itemId" validate:"required"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	UOM        string  `json:"uom"`
	QtyFactor  float64 `json:"qtyFactor"`
	Qty        float64 `json:"qty" validate:"gte=0"`

	// Unit prices are post-discount and independently set per currency.
	PriceUSD float64 `json:"priceUsd"`
	PriceLBP float64 `json:"priceLbp"`

	// Pre-discount reference prices drive the struck-through display only.
	PreDiscountUnitPriceUSD float64 `json:"preDiscountUnitPriceUsd"`
	PreDiscountUnitPriceLBP float64 `json:"preDiscountUnitPriceLbp"`

	// DiscountPct is a fraction in [0,1].
	DiscountPct float64 `json:"discountPct"`
}

// Cart is the ordered set of lines in the active sale. Order only matters for
// display and for first-seen ordering of derived lists; totals ignore it.
type Cart []CartLine

// ResolveQty combines an entered quantity with its UOM factor into the base-unit
// quantity the calculator consumes. A missing factor counts as 1.
func ResolveQty(entered, factor float64) float64 {
	q := Clamp(entered)
	f := Clamp(factor)
	if f == 0 {
		f = 1
	}
	return q * f
}

// Clamp maps negative and non-finite values to 0. Every monetary or quantity
// field is clamped at read time so the calculator stays total over bad input.
func Clamp(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}

// UnitPrice returns the post-discount unit price in the given display currency.
func (l CartLine) UnitPrice(currency Currency) float64 {
	if currency == CurrencyLBP {
		return Clamp(l.PriceLBP)
	}
	return Clamp(l.PriceUSD)
}

// PreDiscountUnitPrice returns the reference unit price in the given currency.
func (l CartLine) PreDiscountUnitPrice(currency Currency) float64 {
	if currency == CurrencyLBP {
		return Clamp(l.PreDiscountUnitPriceLBP)
	}
	return Clamp(l.PreDiscountUnitPriceUSD)
}

// NormalizeDisplayMode maps unknown display modes to tax-inclusive.
func NormalizeDisplayMode(mode string) VATDisplayMode {
	switch VATDisplayMode(mode) {
	case VATDisplayEx, VATDisplayInc, VATDisplayBoth:
		return VATDisplayMode(mode)
	default:
		return VATDisplayInc
	}
}
