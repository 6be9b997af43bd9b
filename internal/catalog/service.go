package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cedarpos/checkout-api/internal/pricing"
)

// Loader fetches the full item id list for one company from the masterdata
// source. The checkout core treats that source as an external collaborator.
type Loader interface {
	LoadItemIDs(ctx context.Context, company pricing.Company) ([]string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, company pricing.Company) ([]string, error)

// LoadItemIDs implements Loader.
func (f LoaderFunc) LoadItemIDs(ctx context.Context, company pricing.Company) ([]string, error) {
	return f(ctx, company)
}

// Service maintains the company-keyed item-existence index, caching per-company
// id lists as JSON in Redis so the guard can run against a local snapshot.
type Service struct {
	Loader Loader
	R      *redis.Client
	TTL    time.Duration
}

func cacheKey(company pricing.Company) string {
	return "catalog:index:" + string(company)
}

// Snapshot resolves an immutable index covering the given companies, serving
// each company's id list from cache when present and falling back to the
// loader on a miss.
func (s *Service) Snapshot(ctx context.Context, companies ...pricing.Company) (Snapshot, error) {
	if s == nil || s.Loader == nil {
		return Snapshot{}, fmt.Errorf("catalog service not configured")
	}
	byCompany := make(map[pricing.Company][]string, len(companies))
	for _, company := range companies {
		var ids []string
		hit, err := s.getJSON(ctx, cacheKey(company), &ids)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read catalog cache for %s: %w", company, err)
		}
		if !hit {
			ids, err = s.Loader.LoadItemIDs(ctx, company)
			if err != nil {
				return Snapshot{}, fmt.Errorf("load catalog index for %s: %w", company, err)
			}
			if err := s.setJSON(ctx, cacheKey(company), ids); err != nil {
				return Snapshot{}, fmt.Errorf("write catalog cache for %s: %w", company, err)
			}
		}
		byCompany[company] = ids
	}
	return NewSnapshot(byCompany), nil
}

// Invalidate drops the cached id list for a company, forcing the next snapshot
// to hit the loader.
func (s *Service) Invalidate(ctx context.Context, company pricing.Company) error {
	if s == nil || s.R == nil {
		return nil
	}
	return s.R.Del(ctx, cacheKey(company)).Err()
}

func (s *Service) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	if s.R == nil || key == "" {
		return false, nil
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) setJSON(ctx context.Context, key string, v any) error {
	if s.R == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, key, data, s.TTL).Err()
}
