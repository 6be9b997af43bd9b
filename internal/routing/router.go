package routing

import (
	"github.com/cedarpos/checkout-api/internal/catalog"
	"github.com/cedarpos/checkout-api/internal/pricing"
)

// Mode selects how the invoice company is resolved. Explicit modes are hard
// overrides; auto derives the company from the cart and the session origin.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeOfficial   Mode = "official"
	ModeUnofficial Mode = "unofficial"
)

// Decision is the routing outcome for one checkout attempt. It is produced once
// and never mutated afterward.
type Decision struct {
	Company          pricing.Company `json:"resolvedCompany"`
	Mode             Mode            `json:"mode"`
	FlaggedForReview bool            `json:"flaggedForReview"`
}

// NormalizeMode maps unknown modes to auto.
func NormalizeMode(mode string) Mode {
	switch Mode(mode) {
	case ModeOfficial, ModeUnofficial:
		return Mode(mode)
	default:
		return ModeAuto
	}
}

// Companies returns the distinct companies present in the cart, in first-seen
// order.
func Companies(lines pricing.Cart) []pricing.Company {
	seen := make(map[pricing.Company]struct{}, 2)
	out := make([]pricing.Company, 0, 2)
	for _, line := range lines {
		if _, ok := seen[line.CompanyKey]; ok {
			continue
		}
		seen[line.CompanyKey] = struct{}{}
		out = append(out, line.CompanyKey)
	}
	return out
}

// PrimaryCompany returns the cart's sole company when it is uniform. A mixed or
// empty cart is ambiguous and reports false.
func PrimaryCompany(lines pricing.Cart) (pricing.Company, bool) {
	companies := Companies(lines)
	if len(companies) == 1 {
		return companies[0], true
	}
	return "", false
}

// IsMixed reports whether the cart spans both companies.
func IsMixed(lines pricing.Cart) bool {
	return len(Companies(lines)) > 1
}

// EffectiveCompany resolves which company the cart is invoiced under. Explicit
// modes win verbatim. Auto returns the cart's unique company when uniform and
// falls back to the origin company otherwise; it never invents a split at this
// layer. Splitting a mixed auto cart into two invoices is the checkout
// pipeline's behavior, via SplitByCompany.
func EffectiveCompany(mode Mode, origin pricing.Company, lines pricing.Cart) pricing.Company {
	switch mode {
	case ModeOfficial:
		return pricing.CompanyOfficial
	case ModeUnofficial:
		return pricing.CompanyUnofficial
	}
	if company, ok := PrimaryCompany(lines); ok {
		return company
	}
	return origin
}

// Partition is one company's share of a mixed cart, invoiced on its own.
type Partition struct {
	Company pricing.Company
	Lines   pricing.Cart
}

// SplitByCompany partitions the cart by company in first-seen order, preserving
// line order inside each partition. A uniform cart yields one partition.
func SplitByCompany(lines pricing.Cart) []Partition {
	index := make(map[pricing.Company]int, 2)
	out := make([]Partition, 0, 2)
	for _, line := range lines {
		i, ok := index[line.CompanyKey]
		if !ok {
			i = len(out)
			index[line.CompanyKey] = i
			out = append(out, Partition{Company: line.CompanyKey})
		}
		out[i].Lines = append(out[i].Lines, line)
	}
	return out
}

// PickCompanyForAmbiguousMatch chooses which catalog to resolve an ambiguous
// item identifier against, with strict precedence: the effective invoice
// company if available, then official, then unofficial, then the first
// available company. The chain is deterministic and independent of map order.
func PickCompanyForAmbiguousMatch(mode Mode, origin pricing.Company, lines pricing.Cart, available []pricing.Company) pricing.Company {
	if len(available) == 0 {
		return ""
	}
	has := func(c pricing.Company) bool {
		for _, a := range available {
			if a == c {
				return true
			}
		}
		return false
	}
	if effective := EffectiveCompany(mode, origin, lines); has(effective) {
		return effective
	}
	if has(pricing.CompanyOfficial) {
		return pricing.CompanyOfficial
	}
	if has(pricing.CompanyUnofficial) {
		return pricing.CompanyUnofficial
	}
	return available[0]
}

// FindMissingItems returns the distinct cart item ids absent from the target
// company's catalog, in first-seen order. An empty result means the cart is
// fully postable as a single invoice under that company.
func FindMissingItems(index catalog.Snapshot, company pricing.Company, lines pricing.Cart) []string {
	seen := make(map[string]struct{}, len(lines))
	missing := make([]string, 0)
	for _, line := range lines {
		if line.ItemID == "" {
			continue
		}
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		if !index.Has(company, line.ItemID) {
			missing = append(missing, line.ItemID)
		}
	}
	return missing
}
