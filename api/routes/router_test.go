package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	authsvc "github.com/benjamins-shop/storefront-backend/internal/auth"
	cartsvc "github.com/benjamins-shop/storefront-backend/internal/cart"
	mediasvc "github.com/benjamins-shop/storefront-backend/internal/media"
	ordersvc "github.com/benjamins-shop/storefront-backend/internal/orders"
	productsvc "github.com/benjamins-shop/storefront-backend/internal/products"
	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	pkgauth "github.com/benjamins-shop/storefront-backend/pkg/auth"
	"github.com/benjamins-shop/storefront-backend/pkg/config"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	"github.com/benjamins-shop/storefront-backend/pkg/enums"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
	"github.com/benjamins-shop/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionService struct{}

func (stubSessionService) Resolve(ctx context.Context, token string, fp sessions.Fingerprint) (*sessions.Resolved, error) {
	return &sessions.Resolved{
		Session: &models.GuestSession{
			ID:        uuid.New(),
			Token:     "gs_" + uuid.NewString(),
			ExpiresAt: time.Now().Add(time.Hour),
		},
		Created: token == "",
	}, nil
}

func (stubSessionService) Get(context.Context, string) (*models.GuestSession, error) {
	panic("unimplemented")
}

type stubProductService struct{}

func (stubProductService) List(ctx context.Context, filter productsvc.ListFilter) ([]models.Product, pagination.Meta, error) {
	return nil, pagination.Meta{Page: 1, Limit: pagination.DefaultLimit}, nil
}

func (stubProductService) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) LookupActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) LookupActiveBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) Create(ctx context.Context, input productsvc.CreateProductInput) (*models.Product, error) {
	return &models.Product{ID: uuid.New(), Name: input.Name, Category: input.Category, Price: input.Price}, nil
}

func (stubProductService) Update(ctx context.Context, id uuid.UUID, input productsvc.UpdateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, session *models.GuestSession) (*cartsvc.View, error) {
	return &cartsvc.View{Items: []cartsvc.Line{}, Subtotal: decimal.Zero}, nil
}

func (stubCartService) Add(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*cartsvc.View, error) {
	panic("unimplemented")
}

func (stubCartService) Update(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*cartsvc.View, error) {
	panic("unimplemented")
}

func (stubCartService) Remove(ctx context.Context, session *models.GuestSession, productID uuid.UUID) (*cartsvc.View, error) {
	panic("unimplemented")
}

func (stubCartService) Clear(ctx context.Context, session *models.GuestSession) error {
	panic("unimplemented")
}

type stubOrderService struct{}

func (stubOrderService) Place(ctx context.Context, session *models.GuestSession, input ordersvc.PlaceOrderInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) List(ctx context.Context, status enums.OrderStatus, page pagination.Params) ([]models.Order, pagination.Meta, error) {
	return nil, pagination.Meta{Page: page.Page, Limit: page.Limit}, nil
}

func (stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) ListBySessionToken(ctx context.Context, sessionToken string) ([]models.Order, error) {
	return nil, nil
}

func (stubOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*models.AdminUser, error) {
	return &models.AdminUser{ID: uuid.New(), Email: input.Email, Name: input.Name}, nil
}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.LoginResult, error) {
	panic("unimplemented")
}

func (stubAuthService) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	panic("unimplemented")
}

type stubMediaService struct{}

func (stubMediaService) Attach(ctx context.Context, input mediasvc.AttachInput) (*models.ProductImage, error) {
	panic("unimplemented")
}

func (stubMediaService) Remove(ctx context.Context, productID, imageID uuid.UUID) error {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "benjamins-shop", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DBPinger: stubPinger{},
		Cache:    stubPinger{},
		Sessions: stubSessionService{},
		Products: stubProductService{},
		Cart:     stubCartService{},
		Orders:   stubOrderService{},
		Auth:     stubAuthService{},
		Media:    stubMediaService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgauth.MintAdminToken(cfg.JWT, time.Now(), pkgauth.AdminTokenPayload{
		AdminID: uuid.New(),
		Email:   "ops@benjamins.shop",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoSession(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Guest-Session") != "" {
		t.Fatalf("public catalog should not mint sessions")
	}
}

func TestGuestOrderHistoryIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/guest/gs_"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Guest-Session") != "" {
		t.Fatalf("order history lookup should not mint sessions")
	}
}

func TestGuestGroupMintsSession(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Guest-Session") == "" {
		t.Fatalf("expected session token on guest routes")
	}
}

func TestAdminGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRegisterHiddenInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = config.AppEnvProd
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/register", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected register to be absent in prod, got %d", resp.Code)
	}
}
