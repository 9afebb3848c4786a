package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
)

func setupSessionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	guestSessions := `
CREATE TABLE IF NOT EXISTS guest_sessions (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  user_agent TEXT NOT NULL DEFAULT '',
  source_address TEXT NOT NULL DEFAULT '',
  expires_at DATETIME NOT NULL,
  last_seen_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	guestCartItems := `
CREATE TABLE IF NOT EXISTS guest_cart_items (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (session_id, product_id)
);`
	require.NoError(t, db.Exec(guestSessions).Error)
	require.NoError(t, db.Exec(guestCartItems).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM guest_cart_items")
		db.Exec("DELETE FROM guest_sessions")
	})

	return db
}

func newSession(t *testing.T, db *gorm.DB, token, userAgent string, created time.Time, expires time.Time) *models.GuestSession {
	t.Helper()

	session := &models.GuestSession{
		ID:         uuid.New(),
		Token:      token,
		UserAgent:  userAgent,
		ExpiresAt:  expires,
		LastSeenAt: created,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func TestFindByToken(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	created := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))

	found, err := repo.FindByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByToken(ctx, NewToken())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTouchSlidesExpiry(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	session := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))

	later := now.Add(30 * time.Minute)
	require.NoError(t, repo.Touch(ctx, session.ID, later, later.Add(time.Hour)))

	found, err := repo.FindByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, later.Add(time.Hour), found.ExpiresAt, time.Second)
	assert.WithinDuration(t, later, found.LastSeenAt, time.Second)
}

func TestDeleteByIDs(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	keep := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))
	drop1 := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))
	drop2 := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))

	deleted, err := repo.DeleteByIDs(ctx, []uuid.UUID{drop1.ID, drop2.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	_, err = repo.FindByToken(ctx, keep.Token)
	require.NoError(t, err)
	_, err = repo.FindByToken(ctx, drop1.Token)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteByIDsEmptyIsNoop(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)

	deleted, err := repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteExpired(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	live := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))
	newSession(t, db, NewToken(), "ua-1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	newSession(t, db, NewToken(), "ua-2", now.Add(-3*time.Hour), now.Add(-2*time.Hour))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, live.ID, remaining[0].ID)
}

func TestListOrdersNewestFirst(t *testing.T) {
	db := setupSessionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	older := newSession(t, db, NewToken(), "ua-1", now.Add(-time.Minute), now.Add(time.Hour))
	newer := newSession(t, db, NewToken(), "ua-1", now, now.Add(time.Hour))

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}
