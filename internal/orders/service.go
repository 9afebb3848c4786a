package orders

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/internal/cart"
	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	dbpkg "github.com/benjamins-shop/storefront-backend/pkg/db"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	"github.com/benjamins-shop/storefront-backend/pkg/enums"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
	"github.com/benjamins-shop/storefront-backend/pkg/outbox"
	"github.com/benjamins-shop/storefront-backend/pkg/pagination"
)

const orderNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	LookupActiveBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type checkoutLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutLockKey(sessionToken string) string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PlaceOrderInput carries the customer details captured at checkout.
type PlaceOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
}

// Service exposes order placement and back-office order operations.
type Service interface {
	Place(ctx context.Context, session *models.GuestSession, input PlaceOrderInput) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListBySessionToken(ctx context.Context, sessionToken string) ([]models.Order, error)
	List(ctx context.Context, status enums.OrderStatus, page pagination.Params) ([]models.Order, pagination.Meta, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	cartRepo *cart.Repository
	tx       txRunner
	catalog  productLoader
	locker   checkoutLocker
	emitter  outboxEmitter
	lockTTL  time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order placement service.
func NewService(
	repo *Repository,
	cartRepo *cart.Repository,
	tx txRunner,
	catalog productLoader,
	locker checkoutLocker,
	emitter outboxEmitter,
	lockTTL time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if locker == nil {
		return nil, fmt.Errorf("checkout locker required")
	}
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	return &service{
		repo:     repo,
		cartRepo: cartRepo,
		tx:       tx,
		catalog:  catalog,
		locker:   locker,
		emitter:  emitter,
		lockTTL:  lockTTL,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Place converts the session's cart into an order. The per-session lock plus
// the transaction make the empty-cart check, the price snapshot and the cart
// clear atomic with respect to concurrent mutations on the same session.
func (s *service) Place(ctx context.Context, session *models.GuestSession, input PlaceOrderInput) (*models.Order, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}

	lockKey := s.locker.CheckoutLockKey(session.Token)
	acquired, err := s.locker.SetNX(ctx, lockKey, uuid.NewString(), s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress for this session")
	}
	defer func() {
		_ = s.locker.Del(context.WithoutCancel(ctx), lockKey)
	}()

	var placed *models.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderNumber := newOrderNumber(s.now())
		placed, err = s.placeOnce(ctx, session, input, orderNumber)
		if err == nil {
			break
		}
		if dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			continue
		}
		return nil, err
	}
	if placed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
	}

	if s.logg != nil {
		fields := map[string]any{
			"order_number": placed.OrderNumber,
			"total":        placed.Total.String(),
			"items":        len(placed.Items),
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "order placed")
	}
	return placed, nil
}

func (s *service) placeOnce(ctx context.Context, session *models.GuestSession, input PlaceOrderInput, orderNumber string) (*models.Order, error) {
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		lines, err := cartRepo.ListBySession(ctx, session.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot place an order with an empty cart")
		}

		ids := make([]uuid.UUID, 0, len(lines))
		lineIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
			lineIDs = append(lineIDs, line.ID)
		}
		byID, err := s.catalog.LookupActiveBatch(ctx, ids)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:              uuid.New(),
			OrderNumber:     orderNumber,
			SessionID:       session.ID,
			SessionToken:    session.Token,
			Status:          enums.OrderStatusPending,
			Total:           decimal.Zero,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, ok := byID[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "a cart item is no longer available").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    line.Quantity,
				LineTotal:   lineTotal,
			})
			order.Total = order.Total.Add(lineTotal)
		}

		orderRepo := s.repo.WithTx(tx)
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return err
		}
		// Delete only the snapshotted lines. An add that commits while this
		// transaction runs stays in the cart instead of vanishing unordered.
		if _, err := cartRepo.DeleteLines(ctx, session.ID, lineIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing ordered cart lines")
		}

		if s.emitter != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{SessionToken: session.Token},
				Data: map[string]any{
					"order_number": order.OrderNumber,
					"total":        order.Total.String(),
					"item_count":   len(items),
				},
				Version: 1,
			}
			if err := s.emitter.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting order event")
			}
		}

		order.Items = items
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) ListBySessionToken(ctx context.Context, sessionToken string) ([]models.Order, error) {
	if err := sessions.ValidateToken(sessionToken); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing session orders")
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, status enums.OrderStatus, page pagination.Params) ([]models.Order, pagination.Meta, error) {
	if status != "" && !status.IsValid() {
		return nil, pagination.Meta{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, total, err := s.repo.List(ctx, status, page)
	if err != nil {
		return nil, pagination.Meta{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, pagination.NewMeta(page, total), nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.UpdateStatus(ctx, id, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if s.emitter != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Data:          map[string]any{"status": status.String()},
				Version:       1,
			}
			if err := s.emitter.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting order event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	return order, nil
}

// Delete removes an order and its line snapshot. Delivered orders are the
// customer's receipt and stay on record.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if order.Status == enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivered orders cannot be deleted")
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting order")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order deleted")
		}
		return nil
	})
}

// newOrderNumber builds a human-quotable identifier: ORD-<millis>-<rand base36>.
func newOrderNumber(now time.Time) string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		binary.BigEndian.PutUint64(buf[:], uint64(now.UnixNano()))
	}
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(buf[:])%2176782336, 36) // 36^6
	for len(suffix) < 6 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
