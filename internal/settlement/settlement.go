package settlement

import (
	"fmt"
	"math"
	"strings"

	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/pricing"
)

// Method is how a sale is tendered. Credit is a deferred receivable, not a cash
// settlement, so credit payments always carry zero amounts.
type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodCredit   Method = "credit"
)

// Overpayment tolerances per settlement currency. USD amounts round to cents so
// anything past 0.009 over the total is a real overpayment; under LBP
// settlement any USD amount beyond float noise is a currency mismatch.
const (
	overpayToleranceUSD  = 0.009
	usdNoiseToleranceLBP = 0.0009
)

// Payment is one tender row. For non-credit methods exactly one of the two
// amounts is nonzero, matching the settlement currency.
type Payment struct {
	Method    Method  `json:"method"`
	AmountUSD float64 `json:"amount_usd"`
	AmountLBP float64 `json:"amount_lbp"`
}

// NormalizeCurrency maps any input to a settlement currency. Only a
// case-insensitive "LBP" selects LBP; everything else fails safe to USD.
func NormalizeCurrency(input string) pricing.Currency {
	if strings.EqualFold(strings.TrimSpace(input), string(pricing.CurrencyLBP)) {
		return pricing.CurrencyLBP
	}
	return pricing.CurrencyUSD
}

// NormalizeMethod maps any input to a known method, defaulting to cash.
func NormalizeMethod(input string) Method {
	switch Method(strings.ToLower(strings.TrimSpace(input))) {
	case MethodCard:
		return MethodCard
	case MethodTransfer:
		return MethodTransfer
	case MethodCredit:
		return MethodCredit
	default:
		return MethodCash
	}
}

// RoundUSD rounds to cents. The epsilon counters binary floating-point
// representation error on otherwise-exact decimal inputs; it does not change
// rounding semantics. Idempotent and monotonic; negatives and NaN map to 0.
func RoundUSD(x float64) float64 {
	r := math.Round((x + 1e-9) * 100) / 100
	if r > 0 {
		return r
	}
	return 0
}

// RoundLBP rounds to whole pounds with the same epsilon and clamping rules.
func RoundLBP(x float64) float64 {
	r := math.Round(x + 1e-9)
	if r > 0 {
		return r
	}
	return 0
}

// BuildPayments turns a chosen method plus tax-inclusive totals into the
// concrete payment set for the sale. Credit ignores the totals entirely and
// defers collection; every other method yields a single row carrying the
// rounded total in the settlement currency and zero in the other.
func BuildPayments(method Method, totalUSD, totalLBP float64, settlementCurrency pricing.Currency) []Payment {
	if method == MethodCredit {
		return []Payment{{Method: MethodCredit}}
	}
	p := Payment{Method: method}
	if settlementCurrency == pricing.CurrencyLBP {
		p.AmountLBP = RoundLBP(totalLBP)
	} else {
		p.AmountUSD = RoundUSD(totalUSD)
	}
	return []Payment{p}
}

// ValidatePayments is the single synchronous gate between payment amounts and
// any network submission; it must pass before a checkout request is dispatched.
// It rejects wrong-currency amounts and overpayment past the per-currency
// tolerance. Underpayment is deliberately allowed: partial payment is a
// business decision left to the caller and the backend.
func ValidatePayments(method Method, settlementCurrency pricing.Currency, totalUSD, totalLBP float64, payments []Payment) error {
	if method == MethodCredit {
		return nil
	}
	var paidUSD, paidLBP float64
	for _, p := range payments {
		paidUSD += RoundUSD(p.AmountUSD)
		paidLBP += RoundLBP(p.AmountLBP)
	}
	if settlementCurrency == pricing.CurrencyLBP {
		if paidUSD > usdNoiseToleranceLBP {
			return common.CurrencyMismatchError("sale settles in LBP but payment carries a USD amount")
		}
		if paidLBP > RoundLBP(totalLBP) {
			return common.OverpaymentError(fmt.Sprintf("paid %.0f LBP exceeds invoice total %.0f LBP", paidLBP, RoundLBP(totalLBP)))
		}
		return nil
	}
	if paidLBP > 0 {
		return common.CurrencyMismatchError("sale settles in USD but payment carries an LBP amount")
	}
	if paidUSD-RoundUSD(totalUSD) > overpayToleranceUSD {
		return common.OverpaymentError(fmt.Sprintf("paid %.2f USD exceeds invoice total %.2f USD", paidUSD, RoundUSD(totalUSD)))
	}
	return nil
}
