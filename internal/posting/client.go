package posting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/pricing"
	"github.com/cedarpos/checkout-api/internal/resilience"
	"github.com/cedarpos/checkout-api/internal/settlement"
)

// Line is the wire shape of one invoice line sent to the posting service.
type Line struct {
	ItemID      string  `json:"item_id"`
	SKU         string  `json:"sku,omitempty"`
	UOM         string  `json:"uom,omitempty"`
	Qty         float64 `json:"qty"`
	PriceUSD    float64 `json:"price_usd"`
	PriceLBP    float64 `json:"price_lbp"`
	DiscountPct float64 `json:"discount_pct,omitempty"`
}

// Request is one company invoice submission. A mixed cart produces two of
// these, dispatched sequentially under the same checkout intent.
type Request struct {
	IdempotencyKey string               `json:"idempotency_key"`
	CompanyID      pricing.Company      `json:"company_id"`
	Payments       []settlement.Payment `json:"payments"`
	Lines          []Line               `json:"lines"`
}

// Result is the posting service's acknowledgement.
type Result struct {
	SaleID string `json:"sale_id"`
	Status string `json:"status"`
}

// LinesFromCart converts cart lines to their wire shape.
func LinesFromCart(cart pricing.Cart) []Line {
	out := make([]Line, 0, len(cart))
	for _, l := range cart {
		out = append(out, Line{
			ItemID:      l.ItemID,
			SKU:         l.SKU,
			UOM:         l.UOM,
			Qty:         pricing.Clamp(l.Qty),
			PriceUSD:    pricing.Clamp(l.PriceUSD),
			PriceLBP:    pricing.Clamp(l.PriceLBP),
			DiscountPct: pricing.Clamp(l.DiscountPct),
		})
	}
	return out
}

// Client submits sales to the external posting service. Submissions are
// idempotent on the service side keyed by the Idempotency-Key header, so the
// retry layer can safely replay a request that failed mid-flight.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// NewClient builds a posting client with an instrumented transport, retries and
// a circuit breaker.
func NewClient(baseURL, apiKey string, maxAttempts int, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(5, 0.6, 30*time.Second, logger),
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: maxAttempts,
			Timeout:     10 * time.Second,
		},
		Logger: logger,
	}
}

// PostSale submits one company invoice. 2xx responses decode into Result; a
// 409 means the key was already consumed and the sale exists, which is reported
// as success so a half-failed split retry converges. Other 4xx responses are
// terminal; 5xx and transport failures surface as retryable posting errors.
func (c *Client) PostSale(ctx context.Context, req Request) (Result, error) {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return Result{}, common.NewAppError(common.CodePostingFailed, "posting service not configured", http.StatusBadGateway, nil)
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return Result{}, common.ValidationError("idempotency key is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/pos/sales", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(ctx, httpReq)
	if err != nil {
		c.Logger.Error().Err(err).
			Str("company", string(req.CompanyID)).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("post sale failed")
		return Result{}, common.NewAppError(common.CodePostingFailed, "sale posting failed", http.StatusBadGateway, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, common.NewAppError(common.CodePostingFailed, "read posting response", http.StatusBadGateway, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		result := Result{Status: "already_posted"}
		_ = json.Unmarshal(payload, &result)
		c.Logger.Info().
			Str("company", string(req.CompanyID)).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("sale already posted, replay acknowledged")
		return result, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result Result
		if err := json.Unmarshal(payload, &result); err != nil {
			return Result{}, common.NewAppError(common.CodePostingFailed, "decode posting response", http.StatusBadGateway, err)
		}
		return result, nil
	default:
		err := fmt.Errorf("posting service returned %s", resp.Status)
		return Result{}, common.NewAppError(common.CodePostingFailed, err.Error(), http.StatusBadGateway, err)
	}
}
