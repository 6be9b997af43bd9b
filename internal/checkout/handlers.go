package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/pricing"
	"github.com/cedarpos/checkout-api/internal/routing"
	"github.com/cedarpos/checkout-api/internal/settlement"
)

// Handler exposes the checkout endpoints: intent minting, quoting and submission.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type submitPayload struct {
	Intent             string               `json:"intent" validate:"required"`
	Mode               string               `json:"mode" validate:"omitempty,oneof=auto official unofficial"`
	Method             string               `json:"method" validate:"omitempty,oneof=cash card transfer credit"`
	SettlementCurrency string               `json:"settlementCurrency"`
	Lines              []pricing.CartLine   `json:"lines" validate:"required,min=1,dive"`
	Payments           []settlement.Payment `json:"payments"`
}

type quotePayload struct {
	Mode               string             `json:"mode" validate:"omitempty,oneof=auto official unofficial"`
	Method             string             `json:"method" validate:"omitempty,oneof=cash card transfer credit"`
	SettlementCurrency string             `json:"settlementCurrency"`
	Lines              []pricing.CartLine `json:"lines" validate:"required,min=1,dive"`
}

// Intent mints a new checkout intent. The client holds it stable across
// retries of the same checkout attempt.
func (h *Handler) Intent(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"intent": NewIntent()}})
}

// Quote returns the read-only pricing/routing/payments preview for a cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload quotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.Svc.BuildQuote(r.Context(), QuoteInput{
		Lines:              payload.Lines,
		Mode:               routing.NormalizeMode(payload.Mode),
		Method:             settlement.NormalizeMethod(payload.Method),
		SettlementCurrency: pricing.Currency(payload.SettlementCurrency),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Submit runs the checkout pipeline and dispatches the sale.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Submit(r.Context(), SubmitInput{
		Intent:             payload.Intent,
		Lines:              payload.Lines,
		Mode:               routing.NormalizeMode(payload.Mode),
		Method:             settlement.NormalizeMethod(payload.Method),
		SettlementCurrency: pricing.Currency(payload.SettlementCurrency),
		Payments:           payload.Payments,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

func (h *Handler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	if err := h.Validate.Struct(payload); err != nil {
		return common.ValidationError(err.Error())
	}
	return nil
}
