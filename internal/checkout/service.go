package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cedarpos/checkout-api/internal/catalog"
	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/obs"
	"github.com/cedarpos/checkout-api/internal/posting"
	"github.com/cedarpos/checkout-api/internal/pricing"
	"github.com/cedarpos/checkout-api/internal/routing"
	"github.com/cedarpos/checkout-api/internal/settlement"
)

// Poster dispatches one company invoice to the external sale-posting service.
type Poster interface {
	PostSale(ctx context.Context, req posting.Request) (posting.Result, error)
}

// SessionConfig is the per-session configuration the UI owns and passes in by
// value: display currency, VAT display mode, settlement currency and the
// company the POS device is registered against.
type SessionConfig struct {
	CurrencyPrimary    pricing.Currency
	VATDisplayMode     pricing.VATDisplayMode
	SettlementCurrency pricing.Currency
	OriginCompany      pricing.Company
}

// Service runs the checkout pipeline. It owns no state across calls; the cart
// and session config arrive by value on every invocation.
type Service struct {
	Catalog *catalog.Service
	Poster  Poster
	Rate    pricing.RateFunc
	Session SessionConfig
	Logger  zerolog.Logger
}

// SubmitInput is one checkout attempt.
type SubmitInput struct {
	Intent             string
	Lines              pricing.Cart
	Mode               routing.Mode
	Method             settlement.Method
	SettlementCurrency pricing.Currency
	// Payments optionally carries operator-entered tender rows (split/multi
	// tender). When empty the payment set is auto-built from the totals.
	Payments []settlement.Payment
}

// SkippedMove records a cross-company line whose stock move was skipped because
// a mixed cart was forced onto a single invoice. Reported explicitly, never
// silently, so the skipped moves can be reconciled later.
type SkippedMove struct {
	ItemID      string          `json:"itemId"`
	FromCompany pricing.Company `json:"fromCompany"`
	ToCompany   pricing.Company `json:"toCompany"`
	Qty         float64         `json:"qty"`
}

// Submission is the outcome of one company invoice dispatch.
type Submission struct {
	Company        pricing.Company      `json:"company"`
	IdempotencyKey string               `json:"idempotencyKey"`
	TotalUSD       float64              `json:"totalUsd"`
	TotalLBP       float64              `json:"totalLbp"`
	Payments       []settlement.Payment `json:"payments"`
	SaleID         string               `json:"saleId"`
	Status         string               `json:"status"`
}

// Result is the checkout outcome. On a dispatch failure it still carries the
// submissions that completed, so the operator can retry only the failed half
// under the same intent.
type Result struct {
	Routing      routing.Decision `json:"routing"`
	Submissions  []Submission     `json:"submissions"`
	SkippedMoves []SkippedMove    `json:"skippedMoves,omitempty"`
}

// invoice is one resolved company partition awaiting dispatch.
type invoice struct {
	company pricing.Company
	lines   pricing.Cart
}

// Submit runs the sequential checkout pipeline: resolve routing, guard forced
// postings against the catalog, build payments, validate them, then dispatch
// one submission per resolved company. Submissions are never issued
// concurrently: a failure on the first invoice is observable before the second
// is attempted.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Result, error) {
	if s == nil || s.Poster == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	if len(in.Lines) == 0 {
		return Result{}, common.ValidationError("cart is empty")
	}
	// Fail on a blank intent before any work happens.
	if _, err := IdempotencyKey(in.Intent, s.Session.OriginCompany); err != nil {
		return Result{}, err
	}

	mode := in.Mode
	if mode == "" {
		mode = routing.ModeAuto
	}
	mixed := routing.IsMixed(in.Lines)
	company := routing.EffectiveCompany(mode, s.Session.OriginCompany, in.Lines)
	// Forced means any line is invoiced away from its own company: an explicit
	// override of a uniform cart counts the same as a forced mixed cart.
	forced := mode != routing.ModeAuto && crossCompany(company, in.Lines)

	decision := routing.Decision{
		Company:          company,
		Mode:             mode,
		FlaggedForReview: forced,
	}
	result := Result{Routing: decision}

	var invoices []invoice
	if mode == routing.ModeAuto && mixed {
		for _, part := range routing.SplitByCompany(in.Lines) {
			invoices = append(invoices, invoice{company: part.Company, lines: part.Lines})
		}
		if obs.SplitSalesTotal != nil {
			obs.SplitSalesTotal.Inc()
		}
	} else {
		invoices = []invoice{{company: decision.Company, lines: in.Lines}}
	}

	if forced {
		if err := s.guardForcedPosting(ctx, decision.Company, in.Lines); err != nil {
			return result, err
		}
		result.SkippedMoves = skippedMoves(decision.Company, in.Lines)
		if len(result.SkippedMoves) > 0 {
			s.Logger.Warn().
				Str("company", string(decision.Company)).
				Int("skipped_moves", len(result.SkippedMoves)).
				Msg("forced single-company posting skips cross-company stock moves")
			if obs.SkippedStockMovesTotal != nil {
				obs.SkippedStockMovesTotal.Add(float64(len(result.SkippedMoves)))
			}
		}
	}

	if len(in.Payments) > 0 && len(invoices) > 1 {
		return result, common.ValidationError("operator-entered tender is not supported for a split sale")
	}

	settle := in.SettlementCurrency
	if settle == "" {
		settle = s.Session.SettlementCurrency
	}
	settle = settlement.NormalizeCurrency(string(settle))

	// Build and validate every payment set before the first dispatch, so a
	// validation failure leaves no partial submission behind.
	pending := make([]Submission, 0, len(invoices))
	for _, inv := range invoices {
		totalsUSD := pricing.ComputeTotals(inv.lines, pricing.CurrencyUSD, s.Rate)
		totalsLBP := pricing.ComputeTotals(inv.lines, pricing.CurrencyLBP, s.Rate)
		payments := in.Payments
		if len(payments) == 0 {
			payments = settlement.BuildPayments(in.Method, totalsUSD.Total, totalsLBP.Total, settle)
		}
		if err := settlement.ValidatePayments(in.Method, settle, totalsUSD.Total, totalsLBP.Total, payments); err != nil {
			if obs.PaymentValidationFailures != nil {
				obs.PaymentValidationFailures.WithLabelValues(common.ErrorCode(err)).Inc()
			}
			return result, err
		}
		key, err := IdempotencyKey(in.Intent, inv.company)
		if err != nil {
			return result, err
		}
		pending = append(pending, Submission{
			Company:        inv.company,
			IdempotencyKey: key,
			TotalUSD:       settlement.RoundUSD(totalsUSD.Total),
			TotalLBP:       settlement.RoundLBP(totalsLBP.Total),
			Payments:       payments,
		})
	}

	for i, sub := range pending {
		req := posting.Request{
			IdempotencyKey: sub.IdempotencyKey,
			CompanyID:      sub.Company,
			Payments:       sub.Payments,
			Lines:          posting.LinesFromCart(invoices[i].lines),
		}
		posted, err := s.Poster.PostSale(ctx, req)
		if err != nil {
			if obs.SaleSubmissionsTotal != nil {
				obs.SaleSubmissionsTotal.WithLabelValues(string(sub.Company), "error").Inc()
			}
			s.Logger.Error().Err(err).
				Str("company", string(sub.Company)).
				Str("idempotency_key", sub.IdempotencyKey).
				Int("completed", len(result.Submissions)).
				Msg("sale submission failed")
			return result, dispatchError(sub.Company, result, err)
		}
		sub.SaleID = posted.SaleID
		sub.Status = posted.Status
		result.Submissions = append(result.Submissions, sub)
		if obs.SaleSubmissionsTotal != nil {
			obs.SaleSubmissionsTotal.WithLabelValues(string(sub.Company), "ok").Inc()
		}
		s.Logger.Info().
			Str("company", string(sub.Company)).
			Str("sale_id", posted.SaleID).
			Str("idempotency_key", sub.IdempotencyKey).
			Msg("sale submitted")
	}
	return result, nil
}

// guardForcedPosting confirms the target company's catalog covers every cart
// item before a forced single-invoice submission is allowed. It reads the
// cached catalog snapshot only; a nonempty result is a hard blocking error.
func (s *Service) guardForcedPosting(ctx context.Context, company pricing.Company, lines pricing.Cart) error {
	if s.Catalog == nil {
		return common.ValidationError("catalog index unavailable for forced posting")
	}
	snapshot, err := s.Catalog.Snapshot(ctx, company)
	if err != nil {
		return err
	}
	missing := routing.FindMissingItems(snapshot, company, lines)
	if len(missing) > 0 {
		if obs.CatalogGuardFailures != nil {
			obs.CatalogGuardFailures.Inc()
		}
		return common.MissingCatalogItemsError(
			fmt.Sprintf("%d cart item(s) missing from the %s catalog", len(missing), company),
			missing,
		)
	}
	return nil
}

// crossCompany reports whether any line would be invoiced away from its own
// company when the whole cart goes to target.
func crossCompany(target pricing.Company, lines pricing.Cart) bool {
	for _, line := range lines {
		if line.CompanyKey != target {
			return true
		}
	}
	return false
}

// dispatchError wraps a posting failure so the client still sees the completed
// half of a split sale: the failed company and the already-posted submissions
// (with their idempotency keys) ride along in the error details, letting the
// operator retry only the failed invoice under the same intent.
func dispatchError(company pricing.Company, partial Result, err error) error {
	appErr := &common.AppError{
		Code:       common.CodePostingFailed,
		Message:    fmt.Sprintf("sale submission for %s failed", company),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
	var inner *common.AppError
	if errors.As(err, &inner) {
		appErr.Code = inner.Code
		if inner.HTTPStatus != 0 {
			appErr.HTTPStatus = inner.HTTPStatus
		}
	}
	appErr.Details = map[string]any{
		"failedCompany":        company,
		"completedSubmissions": append([]Submission{}, partial.Submissions...),
	}
	return appErr
}

func skippedMoves(target pricing.Company, lines pricing.Cart) []SkippedMove {
	var out []SkippedMove
	for _, line := range lines {
		if line.CompanyKey == target {
			continue
		}
		out = append(out, SkippedMove{
			ItemID:      line.ItemID,
			FromCompany: line.CompanyKey,
			ToCompany:   target,
			Qty:         pricing.Clamp(line.Qty),
		})
	}
	return out
}

// Quote derives the read-only checkout preview the UI re-renders on every cart
// mutation: mode-filtered totals, the informational per-company split, the
// routing preview and the auto-built payment set.
type Quote struct {
	Totals       pricing.Totals          `json:"totals"`
	Display      pricing.DisplayTotals   `json:"display"`
	ByCompany    []pricing.CompanyTotals `json:"byCompany,omitempty"`
	Routing      routing.Decision        `json:"routing"`
	Mixed        bool                    `json:"mixed"`
	WouldSplit   bool                    `json:"wouldSplit"`
	Payments     []settlement.Payment    `json:"payments"`
	MissingItems []string                `json:"missingItemIds,omitempty"`
	SkippedMoves []SkippedMove           `json:"skippedMoves,omitempty"`
}

// QuoteInput mirrors SubmitInput minus the intent: quoting has no side effects
// and needs no idempotency.
type QuoteInput struct {
	Lines              pricing.Cart
	Mode               routing.Mode
	Method             settlement.Method
	SettlementCurrency pricing.Currency
}

// BuildQuote computes the preview. It consults the catalog snapshot for forced
// routes so the UI can warn about missing items before the operator submits.
func (s *Service) BuildQuote(ctx context.Context, in QuoteInput) (Quote, error) {
	mode := in.Mode
	if mode == "" {
		mode = routing.ModeAuto
	}
	mixed := routing.IsMixed(in.Lines)
	company := routing.EffectiveCompany(mode, s.Session.OriginCompany, in.Lines)
	forced := mode != routing.ModeAuto && crossCompany(company, in.Lines)

	totals := pricing.ComputeTotals(in.Lines, s.Session.CurrencyPrimary, s.Rate)
	decision := routing.Decision{
		Company:          company,
		Mode:             mode,
		FlaggedForReview: forced,
	}

	settle := in.SettlementCurrency
	if settle == "" {
		settle = s.Session.SettlementCurrency
	}
	settle = settlement.NormalizeCurrency(string(settle))
	totalsUSD := pricing.ComputeTotals(in.Lines, pricing.CurrencyUSD, s.Rate)
	totalsLBP := pricing.ComputeTotals(in.Lines, pricing.CurrencyLBP, s.Rate)

	quote := Quote{
		Totals:     totals,
		Display:    totals.Display(s.Session.VATDisplayMode),
		Routing:    decision,
		Mixed:      mixed,
		WouldSplit: mode == routing.ModeAuto && mixed,
		Payments:   settlement.BuildPayments(in.Method, totalsUSD.Total, totalsLBP.Total, settle),
	}
	if mixed {
		quote.ByCompany = pricing.ComputeTotalsByCompany(in.Lines, s.Session.CurrencyPrimary, s.Rate)
	}
	if forced {
		if s.Catalog != nil {
			snapshot, err := s.Catalog.Snapshot(ctx, decision.Company)
			if err != nil {
				return Quote{}, err
			}
			quote.MissingItems = routing.FindMissingItems(snapshot, decision.Company, in.Lines)
		}
		quote.SkippedMoves = skippedMoves(decision.Company, in.Lines)
	}
	return quote, nil
}
