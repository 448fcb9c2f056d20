package apiutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/leaguehub/internal/api/authz"
)

type invitePayload struct {
	Email    string `json:"email" validate:"required,email"`
	TeamName string `json:"teamName" validate:"required,max=10"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload invitePayload
		want    string
	}{
		{name: "valid", payload: invitePayload{Email: "a@example.com", TeamName: "Aces"}},
		{name: "missing email", payload: invitePayload{TeamName: "Aces"}, want: "email is required"},
		{name: "bad email", payload: invitePayload{Email: "nope", TeamName: "Aces"}, want: "email must be a valid email address"},
		{name: "long name", payload: invitePayload{Email: "a@example.com", TeamName: "The Longest Name"}, want: "teamName must be at most 10 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(context.Background(), tt.payload)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var fieldErr FieldError
			if !errors.As(err, &fieldErr) || fieldErr.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		PaymentID int64 `json:"payment_id"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_id": 7}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.PaymentID != 7 {
		t.Fatalf("expected payment_id 7, got %d (%v)", dst.PaymentID, err)
	}

	for _, body := range []string{``, `{"unknown": 1}`, `{"payment_id": 1}{"payment_id": 2}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSON(req, &dst); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
	}
}

func TestWriteHandlerError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "handler error", err: HandlerError{Status: http.StatusNotFound, Message: "Team not found"}, wantStatus: http.StatusNotFound, wantBody: "Team not found"},
		{name: "wrapped handler error", err: fmt.Errorf("outer: %w", HandlerError{Status: http.StatusConflict, Message: "Conflict"}), wantStatus: http.StatusConflict, wantBody: "Conflict"},
		{name: "field error", err: FieldError{Field: "email", Reason: "is required"}, wantStatus: http.StatusBadRequest, wantBody: "email is required"},
		{name: "unauthenticated", err: authz.ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantBody: "Unauthorized"},
		{name: "forbidden", err: fmt.Errorf("payment 3: %w", authz.ErrForbidden), wantStatus: http.StatusForbidden, wantBody: "Forbidden"},
		{name: "unexpected", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantBody: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteHandlerError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantBody {
				t.Fatalf("expected error %q, got %q", tt.wantBody, body.Error)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?tierSize=4&maxTiers=zero", nil)
	if got, err := QueryInt(req, "tierSize", 3); err != nil || got != 4 {
		t.Fatalf("expected 4, got %d (%v)", got, err)
	}
	if got, err := QueryInt(req, "missing", 5); err != nil || got != 5 {
		t.Fatalf("expected fallback 5, got %d (%v)", got, err)
	}
	if _, err := QueryInt(req, "maxTiers", 5); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestQueryIntMax(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?tierSize=26&maxTiers=21", nil)
	if got, err := QueryIntMax(req, "tierSize", 3, 26); err != nil || got != 26 {
		t.Fatalf("expected 26, got %d (%v)", got, err)
	}
	_, err := QueryIntMax(req, "maxTiers", 5, 20)
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Error() != "maxTiers must be at most 20" {
		t.Fatalf("expected upper-bound field error, got %v", err)
	}
	if got, err := QueryIntMax(req, "missing", 5, 20); err != nil || got != 5 {
		t.Fatalf("expected fallback 5, got %d (%v)", got, err)
	}
}

func TestPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leagues/4", nil)
	req.SetPathValue("id", "4")
	if id, err := PathID(req, "id"); err != nil || id != 4 {
		t.Fatalf("expected 4, got %d (%v)", id, err)
	}
	req.SetPathValue("id", "-1")
	if _, err := PathID(req, "id"); err == nil {
		t.Fatalf("expected error for negative id")
	}
}
