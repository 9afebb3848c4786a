package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
)

type stubCatalog struct {
	products  map[uuid.UUID]models.Product
	lookupErr error
}

func (s *stubCatalog) LookupActive(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	product, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &product, nil
}

func (s *stubCatalog) LookupActiveBatch(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	byID := make(map[uuid.UUID]models.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			byID[id] = product
		}
	}
	return byID, nil
}

func stubProduct(name, price string) models.Product {
	return models.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: "misc",
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
}

func testSession() *models.GuestSession {
	now := time.Now()
	return &models.GuestSession{
		ID:         uuid.New(),
		Token:      "gs_" + uuid.NewString(),
		ExpiresAt:  now.Add(time.Hour),
		LastSeenAt: now,
	}
}

func newCartService(t *testing.T, catalog *stubCatalog) Service {
	t.Helper()

	db := setupCartTestDB(t)
	svc, err := NewService(NewRepository(db), catalog)
	require.NoError(t, err)
	return svc
}

func TestAddValidatesInput(t *testing.T) {
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, nil, uuid.New(), 1)
	require.Error(t, err)

	_, err = svc.Add(ctx, session, uuid.Nil, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Add(ctx, session, uuid.New(), 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAddRejectsUnknownProduct(t *testing.T) {
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{}}
	svc := newCartService(t, catalog)

	_, err := svc.Add(context.Background(), testSession(), uuid.New(), 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestAddIncrementsExistingLine(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	view, err := svc.Add(ctx, session, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)

	view, err = svc.Add(ctx, session, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("199.95").Equal(view.Subtotal))
}

func TestAddEnrichesWithCatalogData(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	product.Images = []models.ProductImage{{URL: "https://cdn.example.com/lamp.webp"}}
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)

	view, err := svc.Add(context.Background(), testSession(), product.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Desk Lamp", view.Items[0].Name)
	require.NotNil(t, view.Items[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/lamp.webp", *view.Items[0].ImageURL)
}

func TestUpdateSetsAbsoluteQuantity(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, session, product.ID, 5)
	require.NoError(t, err)

	view, err := svc.Update(ctx, session, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestUpdateZeroQuantityRemovesLine(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, session, product.ID, 5)
	require.NoError(t, err)

	view, err := svc.Update(ctx, session, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestUpdateMissingLineIsNotFound(t *testing.T) {
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{}}
	svc := newCartService(t, catalog)

	_, err := svc.Update(context.Background(), testSession(), uuid.New(), 3)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveMissingLineIsNoop(t *testing.T) {
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{}}
	svc := newCartService(t, catalog)

	view, err := svc.Remove(context.Background(), testSession(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestGetSurfacesCatalogOutage(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, session, product.ID, 1)
	require.NoError(t, err)

	catalog.lookupErr = pkgerrors.New(pkgerrors.CodeDependency, "catalog lookup timed out")
	_, err = svc.Get(ctx, session)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestGetMarksDelistedProductUnavailable(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, session, product.ID, 1)
	require.NoError(t, err)

	delete(catalog.products, product.ID)

	view, err := svc.Get(ctx, session)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Items[0].Unavailable)
	assert.True(t, view.Subtotal.IsZero())
}

func TestClearEmptiesView(t *testing.T) {
	product := stubProduct("Desk Lamp", "39.99")
	catalog := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, catalog)
	ctx := context.Background()
	session := testSession()

	_, err := svc.Add(ctx, session, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, session))

	view, err := svc.Get(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
