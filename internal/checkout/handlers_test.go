package checkout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/cedarpos/checkout-api/internal/common"
	"github.com/cedarpos/checkout-api/internal/settlement"
)

func newTestHandler(poster Poster) *Handler {
	return &Handler{Svc: newTestService(poster, nil), Validate: validator.New()}
}

type errorEnvelope struct {
	Error common.ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return env.Error
}

func TestIntentHandler(t *testing.T) {
	h := newTestHandler(&stubPoster{})
	rec := httptest.NewRecorder()
	h.Intent(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/intent", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var body struct {
		Data struct {
			Intent string `json:"intent"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.HasPrefix(body.Data.Intent, "chk_") {
		t.Fatalf("intent = %q", body.Data.Intent)
	}
}

func TestSubmitHandlerSuccess(t *testing.T) {
	poster := &stubPoster{}
	h := newTestHandler(poster)

	payload := `{
		"intent": "chk_h1",
		"mode": "auto",
		"method": "cash",
		"lines": [{"companyKey":"official","itemId":"a","qty":1,"priceUsd":10,"priceLbp":900000}]
	}`
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(payload)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data.Submissions) != 1 {
		t.Fatalf("submissions = %+v", body.Data.Submissions)
	}
	if body.Data.Submissions[0].IdempotencyKey != "chk_h1:sale:official" {
		t.Fatalf("key = %q", body.Data.Submissions[0].IdempotencyKey)
	}
	if poster.calls != 1 {
		t.Fatalf("poster calls = %d", poster.calls)
	}
}

func TestSubmitHandlerMalformedJSON(t *testing.T) {
	h := newTestHandler(&stubPoster{})
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "BAD_REQUEST" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestSubmitHandlerValidation(t *testing.T) {
	poster := &stubPoster{}
	h := newTestHandler(poster)

	cases := []struct {
		name    string
		payload string
	}{
		{"missing intent", `{"lines":[{"companyKey":"official","itemId":"a","qty":1,"priceUsd":1}]}`},
		{"empty lines", `{"intent":"chk_1","lines":[]}`},
		{"bad mode", `{"intent":"chk_1","mode":"split","lines":[{"companyKey":"official","itemId":"a","qty":1,"priceUsd":1}]}`},
		{"bad method", `{"intent":"chk_1","method":"cheque","lines":[{"companyKey":"official","itemId":"a","qty":1,"priceUsd":1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(tc.payload)))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Code != common.CodeValidation {
				t.Fatalf("code = %q", body.Code)
			}
		})
	}
	if poster.calls != 0 {
		t.Fatalf("poster must not be reached, calls = %d", poster.calls)
	}
}

func TestSubmitHandlerMapsDomainErrors(t *testing.T) {
	h := newTestHandler(&stubPoster{})

	payload := `{
		"intent": "chk_h2",
		"method": "cash",
		"lines": [{"companyKey":"official","itemId":"a","qty":1,"priceUsd":10,"priceLbp":900000}],
		"payments": [{"method":"cash","amount_usd":50}]
	}`
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(payload)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != common.CodeOverpayment {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestSubmitHandlerPartialFailureSurfacesCompletedHalf(t *testing.T) {
	poster := &stubPoster{failAt: 2}
	h := newTestHandler(poster)

	payload := `{
		"intent": "chk_h3",
		"mode": "auto",
		"method": "cash",
		"lines": [
			{"companyKey":"unofficial","itemId":"x","qty":1,"priceUsd":5,"priceLbp":450000},
			{"companyKey":"official","itemId":"a","qty":1,"priceUsd":10,"priceLbp":900000}
		]
	}`
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(payload)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeError(t, rec)
	if body.Code != common.CodePostingFailed {
		t.Fatalf("code = %q", body.Code)
	}
	details, ok := body.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %#v", body.Details)
	}
	if details["failedCompany"] != "official" {
		t.Fatalf("failedCompany = %v", details["failedCompany"])
	}
	completed, ok := details["completedSubmissions"].([]any)
	if !ok || len(completed) != 1 {
		t.Fatalf("completedSubmissions = %#v", details["completedSubmissions"])
	}
	first, ok := completed[0].(map[string]any)
	if !ok {
		t.Fatalf("submission = %#v", completed[0])
	}
	if first["idempotencyKey"] != "chk_h3:sale:unofficial" {
		t.Fatalf("idempotencyKey = %v", first["idempotencyKey"])
	}
	if first["company"] != "unofficial" {
		t.Fatalf("company = %v", first["company"])
	}
}

func TestQuoteHandler(t *testing.T) {
	h := newTestHandler(&stubPoster{})

	payload := `{
		"mode": "auto",
		"method": "cash",
		"lines": [
			{"companyKey":"unofficial","itemId":"x","qty":1,"priceUsd":5,"priceLbp":450000},
			{"companyKey":"official","itemId":"a","qty":1,"priceUsd":10,"priceLbp":900000}
		]
	}`
	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data Quote `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Data.Mixed || !body.Data.WouldSplit {
		t.Fatalf("quote = %+v", body.Data)
	}
	if len(body.Data.Payments) != 1 || body.Data.Payments[0].Method != settlement.MethodCash {
		t.Fatalf("payments = %+v", body.Data.Payments)
	}
}

func TestQuoteHandlerRequiresLines(t *testing.T) {
	h := newTestHandler(&stubPoster{})
	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{"lines":[]}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}
