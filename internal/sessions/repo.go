package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
)

// Repository manages persisted guest sessions.
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

// Create persists a new guest session.
func (r *Repository) Create(ctx context.Context, session *models.GuestSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByToken returns the session with the given token or gorm.ErrRecordNotFound.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.GuestSession, error) {
	var session models.GuestSession
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Touch refreshes the last-seen timestamp and slides the expiry forward.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID, lastSeen, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GuestSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_seen_at": lastSeen,
			"expires_at":   expiresAt,
		}).Error
}

// List returns all sessions ordered newest first. The duplicate reaper scans
// the full table the same way the cleanup it replaces did.
func (r *Repository) List(ctx context.Context) ([]models.GuestSession, error) {
	var rows []models.GuestSession
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteByIDs removes the given sessions; cart items cascade.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.GuestSession{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes every session whose expiry has passed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.GuestSession{})
	return res.RowsAffected, res.Error
}
