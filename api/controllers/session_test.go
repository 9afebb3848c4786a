package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benjamins-shop/storefront-backend/api/middleware"
)

func TestGuestSessionInfo(t *testing.T) {
	logg := controllerTestLogger()

	t.Run("returns resolved session", func(t *testing.T) {
		resolved := testResolvedSession()
		resolved.Created = true
		req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/session", nil)
		req = req.WithContext(middleware.WithSession(req.Context(), resolved))
		rec := httptest.NewRecorder()
		GuestSessionInfo(logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data      sessionResponse `json:"data"`
			SessionID string          `json:"sessionId"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if envelope.Data.Token != resolved.Session.Token || !envelope.Data.Created {
			t.Fatalf("unexpected payload: %+v", envelope.Data)
		}
		if envelope.SessionID != resolved.Session.Token {
			t.Fatalf("expected session echo, got %q", envelope.SessionID)
		}
	})

	t.Run("missing context is an internal error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/session", nil)
		rec := httptest.NewRecorder()
		GuestSessionInfo(logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
