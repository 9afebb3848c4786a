package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
)

// Repository manages persisted guest cart items.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// AddQuantity upserts a cart line, incrementing the stored quantity when the
// (session, product) row already exists. The increment happens in the storage
// layer so two concurrent adds both land instead of one overwriting the other.
func (r *Repository) AddQuantity(ctx context.Context, sessionID, productID uuid.UUID, quantity int) error {
	item := models.GuestCartItem{
		ID:        uuid.New(),
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("guest_cart_items.quantity + ?", quantity),
				"updated_at": time.Now(),
			}),
		}).
		Create(&item).Error
}

// SetQuantity replaces the stored quantity for an existing line. The returned
// row count is zero when no line exists for the product.
func (r *Repository) SetQuantity(ctx context.Context, sessionID, productID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GuestCartItem{}).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// Remove deletes the line for the product if present.
func (r *Repository) Remove(ctx context.Context, sessionID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Delete(&models.GuestCartItem{})
	return res.RowsAffected, res.Error
}

// DeleteLines removes only the named lines. Checkout clears the rows it
// snapshotted so a line added concurrently is not dropped with them.
func (r *Repository) DeleteLines(ctx context.Context, sessionID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("session_id = ? AND id IN ?", sessionID, ids).
		Delete(&models.GuestCartItem{})
	return res.RowsAffected, res.Error
}

// Clear removes every line for the session.
func (r *Repository) Clear(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.GuestCartItem{})
	return res.RowsAffected, res.Error
}

// ListBySession returns the session's lines oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.GuestCartItem, error) {
	var rows []models.GuestCartItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
