package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"team-collab/backend/models"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", models.NewValidationError("bad input"), http.StatusBadRequest},
		{"not found", models.NewNotFoundError("task"), http.StatusNotFound},
		{"authorization", models.NewAuthorizationError("no"), http.StatusForbidden},
		{"authentication", models.NewAuthenticationError("who"), http.StatusUnauthorized},
		{"persistence", models.NewPersistenceError("write", errors.New("boom")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Success {
				t.Error("error responses must have success=false")
			}
			if body.Message == "" {
				t.Error("error responses must carry a message")
			}
		})
	}
}

// Internal failures must not leak their cause to the client.
func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, models.NewPersistenceError("write task", errors.New("connection refused to 10.0.0.3")))

	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Error("internal error detail leaked into the response body")
	}
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
		var p payload
		if err := decodeAndValidate(r, &p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Email != "a@b.com" {
			t.Errorf("email = %q", p.Email)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		var p payload
		err := decodeAndValidate(r, &p)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("failing validation tag", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
		var p payload
		err := decodeAndValidate(r, &p)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})
}
