package catalog

import "github.com/cedarpos/checkout-api/internal/pricing"

// Snapshot is an immutable company-keyed item-existence index. The checkout
// guard reads it synchronously; building and refreshing it is the Service's
// job, so no network call ever happens inside the guard itself.
type Snapshot struct {
	items map[pricing.Company]map[string]struct{}
}

// NewSnapshot builds a snapshot from per-company item id lists.
func NewSnapshot(byCompany map[pricing.Company][]string) Snapshot {
	items := make(map[pricing.Company]map[string]struct{}, len(byCompany))
	for company, ids := range byCompany {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			set[id] = struct{}{}
		}
		items[company] = set
	}
	return Snapshot{items: items}
}

// Has reports whether the company's catalog contains the item.
func (s Snapshot) Has(company pricing.Company, itemID string) bool {
	set, ok := s.items[company]
	if !ok {
		return false
	}
	_, ok = set[itemID]
	return ok
}

// Size returns the number of items indexed for the company.
func (s Snapshot) Size(company pricing.Company) int {
	return len(s.items[company])
}
