package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/internal/cart"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	"github.com/benjamins-shop/storefront-backend/pkg/enums"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/outbox"
	"github.com/benjamins-shop/storefront-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubCatalog struct {
	products map[uuid.UUID]models.Product
	err      error
}

func (s *stubCatalog) LookupActiveBatch(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	byID := make(map[uuid.UUID]models.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			byID[id] = product
		}
	}
	return byID, nil
}

type stubLocker struct {
	held  map[string]bool
	fails error
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: map[string]bool{}}
}

func (l *stubLocker) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if l.fails != nil {
		return false, l.fails
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *stubLocker) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(l.held, key)
	}
	return nil
}

func (l *stubLocker) CheckoutLockKey(sessionToken string) string {
	return "shop:checkout:lock:" + sessionToken
}

type orderTestEnv struct {
	db      *gorm.DB
	svc     Service
	cart    *cart.Repository
	catalog *stubCatalog
	locker  *stubLocker
}

func newOrderTestEnv(t *testing.T) *orderTestEnv {
	t.Helper()

	db := setupOrdersTestDB(t)
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{}}
	locker := newStubLocker()
	cartRepo := cart.NewRepository(db)
	emitter := outbox.NewService(outbox.NewRepository(db), nil)

	svc, err := NewService(
		NewRepository(db),
		cartRepo,
		gormTxRunner{db: db},
		catalog,
		locker,
		emitter,
		15*time.Second,
		nil,
	)
	require.NoError(t, err)

	return &orderTestEnv{db: db, svc: svc, cart: cartRepo, catalog: catalog, locker: locker}
}

func (e *orderTestEnv) addProduct(t *testing.T, name, price string) models.Product {
	t.Helper()

	product := models.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: "misc",
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	e.catalog.products[product.ID] = product
	return product
}

func guestSession() *models.GuestSession {
	now := time.Now()
	return &models.GuestSession{
		ID:         uuid.New(),
		Token:      "gs_" + uuid.NewString(),
		ExpiresAt:  now.Add(time.Hour),
		LastSeenAt: now,
	}
}

func checkoutInput() PlaceOrderInput {
	return PlaceOrderInput{
		CustomerName:    "Taylor Doe",
		CustomerEmail:   "taylor@example.com",
		ShippingAddress: "1 Main St, Springfield",
	}
}

func TestPlaceSnapshotsPricesAndClearsCart(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	chair := env.addProduct(t, "Oak Chair", "89.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 2))
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, chair.ID, 1))

	order, err := env.svc.Place(ctx, session, checkoutInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("169.97").Equal(order.Total))
	require.Len(t, order.Items, 2)

	// subsequent catalog edits must not rewrite the snapshot
	found, err := env.svc.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	for _, item := range found.Items {
		if item.ProductID == lamp.ID {
			assert.True(t, decimal.RequireFromString("39.99").Equal(item.UnitPrice))
			assert.Equal(t, 2, item.Quantity)
		}
	}

	remaining, err := env.cart.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	var outboxCount int64
	require.NoError(t, env.db.Table("outbox_events").Where("event_type = ?", "order_created").Count(&outboxCount).Error)
	assert.EqualValues(t, 1, outboxCount)
}

func TestPlaceEmptyCart(t *testing.T) {
	env := newOrderTestEnv(t)

	_, err := env.svc.Place(context.Background(), guestSession(), checkoutInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
}

func TestPlaceValidatesCustomerFields(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	cases := []PlaceOrderInput{
		{CustomerEmail: "a@b.c", ShippingAddress: "addr"},
		{CustomerName: "Taylor", ShippingAddress: "addr"},
		{CustomerName: "Taylor", CustomerEmail: "a@b.c"},
	}
	for _, input := range cases {
		_, err := env.svc.Place(ctx, guestSession(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
}

func TestPlaceConflictsWhileLockHeld(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))

	key := env.locker.CheckoutLockKey(session.Token)
	env.locker.held[key] = true

	_, err := env.svc.Place(ctx, session, checkoutInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	delete(env.locker.held, key)
	_, err = env.svc.Place(ctx, session, checkoutInput())
	require.NoError(t, err)
}

func TestPlaceRollsBackWhenProductVanishes(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))
	delete(env.catalog.products, lamp.ID)

	_, err := env.svc.Place(ctx, session, checkoutInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	remaining, err := env.cart.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	var orderCount int64
	require.NoError(t, env.db.Table("orders").Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestPlaceReleasesLock(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	_, err := env.svc.Place(ctx, session, checkoutInput())
	require.Error(t, err)

	assert.False(t, env.locker.held[env.locker.CheckoutLockKey(session.Token)])
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))

	order, err := env.svc.Place(ctx, session, checkoutInput())
	require.NoError(t, err)

	updated, err := env.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	var eventCount int64
	require.NoError(t, env.db.Table("outbox_events").Where("event_type = ?", "order_status_changed").Count(&eventCount).Error)
	assert.EqualValues(t, 1, eventCount)
}

func TestUpdateStatusRejectsInvalid(t *testing.T) {
	env := newOrderTestEnv(t)

	_, err := env.svc.UpdateStatus(context.Background(), uuid.New(), "teleported")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = env.svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusShipped)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListPaginates(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	for i := 0; i < 3; i++ {
		session := guestSession()
		require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))
		_, err := env.svc.Place(ctx, session, checkoutInput())
		require.NoError(t, err)
	}

	rows, meta, err := env.svc.List(ctx, "", pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	_, err = env.svc.UpdateStatus(ctx, rows[0].ID, enums.OrderStatusShipped)
	require.NoError(t, err)

	shipped, meta, err := env.svc.List(ctx, enums.OrderStatusShipped, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, shipped, 1)
	assert.EqualValues(t, 1, meta.Total)

	_, _, err = env.svc.List(ctx, "teleported", pagination.Params{Page: 1, Limit: 10})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListBySessionTokenOrderHistory(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	for i := 0; i < 2; i++ {
		require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))
		_, err := env.svc.Place(ctx, session, checkoutInput())
		require.NoError(t, err)
	}

	other := guestSession()
	require.NoError(t, env.cart.AddQuantity(ctx, other.ID, lamp.ID, 1))
	_, err := env.svc.Place(ctx, other, checkoutInput())
	require.NoError(t, err)

	rows, err := env.svc.ListBySessionToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = env.svc.ListBySessionToken(ctx, "not-a-session-token")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteRefusesDeliveredOrders(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))
	order, err := env.svc.Place(ctx, session, checkoutInput())
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	err = env.svc.Delete(ctx, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = env.svc.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
}

func TestDeleteRemovesPendingOrder(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()
	session := guestSession()

	lamp := env.addProduct(t, "Desk Lamp", "39.99")
	require.NoError(t, env.cart.AddQuantity(ctx, session.ID, lamp.ID, 1))
	order, err := env.svc.Place(ctx, session, checkoutInput())
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, order.ID))

	_, err = env.svc.GetByOrderNumber(ctx, order.OrderNumber)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = env.svc.Delete(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestNewOrderNumberShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number := newOrderNumber(time.Now())
		parts := strings.SplitN(number, "-", 3)
		require.Len(t, parts, 3)
		assert.Equal(t, "ORD", parts[0])
		assert.Len(t, parts[2], 6)
		assert.False(t, seen[number], "order numbers should not repeat")
		seen[number] = true
	}
}
