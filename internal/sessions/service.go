package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

// TokenPrefix marks every guest session token handed to clients.
const TokenPrefix = "gs_"

// Fingerprint identifies a client for duplicate detection only, never for
// authorization.
type Fingerprint struct {
	UserAgent  string
	SourceAddr string
}

// Resolved carries the session a request runs under plus whether a fresh
// token was minted (new visitor or silent replacement).
type Resolved struct {
	Session *models.GuestSession
	Created bool
}

// Service finds-or-creates the guest session behind every storefront request.
type Service interface {
	Resolve(ctx context.Context, token string, fp Fingerprint) (*Resolved, error)
	Get(ctx context.Context, token string) (*models.GuestSession, error)
}

type service struct {
	repo *Repository
	ttl  time.Duration
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the session resolver.
func NewService(repo *Repository, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{
		repo: repo,
		ttl:  ttl,
		logg: logg,
		now:  time.Now,
	}, nil
}

// NewToken mints a fresh session token.
func NewToken() string {
	return TokenPrefix + uuid.NewString()
}

// ValidateToken rejects tokens that cannot possibly exist before any store
// lookup. This is a fast path, not a security boundary.
func ValidateToken(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return pkgerrors.New(pkgerrors.CodeValidation, "session token has invalid prefix")
	}
	if _, err := uuid.Parse(strings.TrimPrefix(token, TokenPrefix)); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session token is malformed")
	}
	return nil
}

// Resolve returns the session for the supplied token. A missing token creates
// a new session; an unknown or expired token is silently replaced so the
// shopper is never blocked.
func (s *service) Resolve(ctx context.Context, token string, fp Fingerprint) (*Resolved, error) {
	now := s.now()

	if strings.TrimSpace(token) == "" {
		return s.create(ctx, fp, now)
	}

	if err := ValidateToken(token); err != nil {
		return nil, err
	}

	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.create(ctx, fp, now)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up session")
	}

	if session.Expired(now) {
		return s.create(ctx, fp, now)
	}

	if err := s.repo.Touch(ctx, session.ID, now, now.Add(s.ttl)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing session")
	}
	session.LastSeenAt = now
	session.ExpiresAt = now.Add(s.ttl)

	return &Resolved{Session: session}, nil
}

// Get returns the non-expired session for a token without creating one.
func (s *service) Get(ctx context.Context, token string) (*models.GuestSession, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up session")
	}
	if session.Expired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session expired")
	}
	return session, nil
}

func (s *service) create(ctx context.Context, fp Fingerprint, now time.Time) (*Resolved, error) {
	session := &models.GuestSession{
		ID:         uuid.New(),
		Token:      NewToken(),
		UserAgent:  fp.UserAgent,
		SourceAddr: fp.SourceAddr,
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating session")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithSessionID(ctx, session.Token), "guest session created")
	}
	return &Resolved{Session: session, Created: true}, nil
}
