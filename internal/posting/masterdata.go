package posting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cedarpos/checkout-api/internal/pricing"
)

// LoadItemIDs fetches the item id list for one company from the backend
// masterdata surface. It satisfies the catalog loader interface so the
// checkout guard can run against a cached snapshot of this data.
func (c *Client) LoadItemIDs(ctx context.Context, company pricing.Company) ([]string, error) {
	url := fmt.Sprintf("%s/pos/catalog/%s/item-ids", c.BaseURL, company)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load catalog item ids for %s: %w", company, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("load catalog item ids for %s: %s", company, resp.Status)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("decode catalog item ids for %s: %w", company, err)
	}
	return ids, nil
}

// Ping probes the posting service's liveness endpoint for readiness checks.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health/live", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("posting service unhealthy: %s", resp.Status)
	}
	return nil
}
