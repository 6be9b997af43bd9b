package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorConstructors(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ValidationError("bad input"), CodeValidation, http.StatusUnprocessableEntity},
		{CurrencyMismatchError("wrong currency"), CodeCurrencyMismatch, http.StatusUnprocessableEntity},
		{OverpaymentError("too much"), CodeOverpayment, http.StatusUnprocessableEntity},
		{MissingCatalogItemsError("missing", []string{"a"}), CodeMissingCatalogItems, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Fatalf("code = %q, want %q", tc.err.Code, tc.code)
		}
		if tc.err.HTTPStatus != tc.status {
			t.Fatalf("%s status = %d, want %d", tc.code, tc.err.HTTPStatus, tc.status)
		}
	}
}

func TestMissingCatalogItemsDetails(t *testing.T) {
	err := MissingCatalogItemsError("2 items missing", []string{"a", "b"})
	details, ok := err.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %#v", err.Details)
	}
	ids, ok := details["missingItemIds"].([]string)
	if !ok || len(ids) != 2 {
		t.Fatalf("missingItemIds = %#v", details["missingItemIds"])
	}
}

func TestErrorCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit sale: %w", OverpaymentError("too much"))
	if got := ErrorCode(wrapped); got != CodeOverpayment {
		t.Fatalf("ErrorCode = %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Fatalf("plain error code = %q", got)
	}
	if !IsAppError(wrapped) {
		t.Fatal("wrapped AppError not recognized")
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ValidationError("cart is empty"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != CodeValidation || body.Error.Message != "cart is empty" {
		t.Fatalf("envelope = %+v", body.Error)
	}
}

func TestWriteErrorPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("boom"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "BAD_REQUEST" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}
