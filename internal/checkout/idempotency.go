package checkout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/pricing"
)

// NewIntent mints a checkout intent: an opaque token identifying one user
// checkout attempt. The caller holds it stable across retries so the derived
// per-company idempotency keys do not change.
func NewIntent() string {
	return "chk_" + uuid.NewString()
}

// NormalizeCompany maps a company key to exactly "official" or "unofficial".
// Unofficial requires an exact case-insensitive match; everything else,
// including case variants of anything but "unofficial", maps to official.
func NormalizeCompany(key string) pricing.Company {
	if strings.EqualFold(strings.TrimSpace(key), string(pricing.CompanyUnofficial)) {
		return pricing.CompanyUnofficial
	}
	return pricing.CompanyOfficial
}

// IdempotencyKey derives the retry-safe submission key for one company invoice.
// A mixed cart split into two invoices gets one key per company under the same
// intent, so retrying the failed half cannot double-post the succeeded half.
// Pure and deterministic; no I/O.
func IdempotencyKey(intent string, company pricing.Company) (string, error) {
	trimmed := strings.TrimSpace(intent)
	if trimmed == "" {
		return "", common.ValidationError("checkout intent is required")
	}
	return trimmed + ":sale:" + string(NormalizeCompany(string(company))), nil
}
