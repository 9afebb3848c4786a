package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
)

type productLoader interface {
	LookupActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LookupActiveBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Line is a cart item enriched with current catalog display data. The
// enrichment is resolved fresh on every read; only the quantity is persisted.
type Line struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// View is the rendered cart returned by every mutator.
type View struct {
	Items    []Line          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Service exposes guest cart mutations.
type Service interface {
	Get(ctx context.Context, session *models.GuestSession) (*View, error)
	Add(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*View, error)
	Update(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*View, error)
	Remove(ctx context.Context, session *models.GuestSession, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, session *models.GuestSession) error
}

type service struct {
	repo    *Repository
	catalog productLoader
}

// NewService builds the cart mutator.
func NewService(repo *Repository, catalog productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

func (s *service) Get(ctx context.Context, session *models.GuestSession) (*View, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	return s.render(ctx, session.ID)
}

func (s *service) Add(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*View, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if _, err := s.catalog.LookupActive(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.repo.AddQuantity(ctx, session.ID, productID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
	}
	return s.render(ctx, session.ID)
}

func (s *service) Update(ctx context.Context, session *models.GuestSession, productID uuid.UUID, quantity int) (*View, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	// Zero or negative means remove; the store never keeps such lines.
	if quantity <= 0 {
		return s.Remove(ctx, session, productID)
	}

	updated, err := s.repo.SetQuantity(ctx, session.ID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	if updated == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.render(ctx, session.ID)
}

func (s *service) Remove(ctx context.Context, session *models.GuestSession, productID uuid.UUID) (*View, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if _, err := s.repo.Remove(ctx, session.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.render(ctx, session.ID)
}

func (s *service) Clear(ctx context.Context, session *models.GuestSession) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if _, err := s.repo.Clear(ctx, session.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) render(ctx context.Context, sessionID uuid.UUID) (*View, error) {
	items, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart items")
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	byID, err := s.catalog.LookupActiveBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &View{Items: make([]Line, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		line := Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		product, ok := byID[item.ProductID]
		if !ok {
			line.Unavailable = true
			view.Items = append(view.Items, line)
			continue
		}
		line.Name = product.Name
		line.Price = product.Price
		if len(product.Images) > 0 {
			line.ImageURL = &product.Images[0].URL
		}
		line.LineTotal = product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.Items = append(view.Items, line)
	}
	return view, nil
}
