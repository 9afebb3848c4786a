package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benjamins-shop/storefront-backend/api/middleware"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
)

func TestPlaceOrder(t *testing.T) {
	logg := controllerTestLogger()
	resolved := testResolvedSession()
	order := testOrder()

	t.Run("success", func(t *testing.T) {
		stub := &stubOrderService{order: order}
		body := `{"customer_name":"Jordan Reyes","customer_email":"jordan@example.com","shipping_address":"1 Main St"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithSession(req.Context(), resolved))
		rec := httptest.NewRecorder()
		PlaceOrder(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data      orderResponse `json:"data"`
			SessionID string        `json:"sessionId"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if envelope.Data.OrderNumber != order.OrderNumber {
			t.Fatalf("unexpected order payload: %+v", envelope.Data)
		}
		if envelope.SessionID != resolved.Session.Token {
			t.Fatalf("expected session echo, got %q", envelope.SessionID)
		}
	})

	t.Run("bad email rejected", func(t *testing.T) {
		body := `{"customer_name":"Jordan Reyes","customer_email":"not-an-email","shipping_address":"1 Main St"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithSession(req.Context(), resolved))
		rec := httptest.NewRecorder()
		PlaceOrder(&stubOrderService{order: order}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("empty cart surfaces 422", func(t *testing.T) {
		stub := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
		body := `{"customer_name":"Jordan Reyes","customer_email":"jordan@example.com","shipping_address":"1 Main St"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(middleware.WithSession(req.Context(), resolved))
		rec := httptest.NewRecorder()
		PlaceOrder(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestGetOrder(t *testing.T) {
	logg := controllerTestLogger()
	order := testOrder()

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.OrderNumber, nil)
		req = withRouteParam(req, "orderNumber", order.OrderNumber)
		rec := httptest.NewRecorder()
		GetOrder(&stubOrderService{order: order}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown order number", func(t *testing.T) {
		stub := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-0-zzzzzz", nil)
		req = withRouteParam(req, "orderNumber", "ORD-0-zzzzzz")
		rec := httptest.NewRecorder()
		GetOrder(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestListGuestOrders(t *testing.T) {
	logg := controllerTestLogger()
	order := testOrder()
	token := "gs_11111111-2222-3333-4444-555555555555"

	t.Run("success", func(t *testing.T) {
		stub := &stubOrderService{order: order}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/guest/"+token, nil)
		req = withRouteParam(req, "sessionToken", token)
		rec := httptest.NewRecorder()
		ListGuestOrders(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.lastToken != token {
			t.Fatalf("service saw token %q", stub.lastToken)
		}
		var envelope struct {
			Data []orderResponse `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(envelope.Data) != 1 || envelope.Data[0].OrderNumber != order.OrderNumber {
			t.Fatalf("unexpected history payload: %+v", envelope.Data)
		}
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		stub := &stubOrderService{order: order, err: pkgerrors.New(pkgerrors.CodeValidation, "session token has invalid prefix")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/guest/not-a-token", nil)
		req = withRouteParam(req, "sessionToken", "not-a-token")
		rec := httptest.NewRecorder()
		ListGuestOrders(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
