package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	"github.com/benjamins-shop/storefront-backend/pkg/enums"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
	"github.com/benjamins-shop/storefront-backend/pkg/metrics"
	"github.com/benjamins-shop/storefront-backend/pkg/outbox"
)

// fingerprintBucket is the grouping granularity for duplicate detection. Two
// sessions minted for the same client within one bucket are considered
// accidental copies.
const fingerprintBucket = time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type DuplicateSessionsJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository *sessions.Repository
	Outbox     outboxEmitter
	Metrics    *metrics.CronJobMetrics
}

// NewDuplicateSessionsJob builds the sweep that collapses sessions
// double-created for the same client by races or retries. Within each
// fingerprint bucket the newest session survives and the others are dropped,
// carts included. Orders are untouched since order lines are value snapshots.
func NewDuplicateSessionsJob(params DuplicateSessionsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &duplicateSessionsJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repository,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type duplicateSessionsJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    *sessions.Repository
	outbox  outboxEmitter
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *duplicateSessionsJob) Name() string { return "duplicate-sessions" }

type duplicateGroup struct {
	survivor models.GuestSession
	reaped   []models.GuestSession
}

func (j *duplicateSessionsJob) Run(ctx context.Context) error {
	rows, err := j.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	groups := groupDuplicates(rows, j.now())

	var sweepErr error
	totalReaped := 0
	for _, group := range groups {
		if err := j.reapGroup(ctx, group); err != nil {
			sweepErr = multierr.Append(sweepErr, err)
			continue
		}
		totalReaped += len(group.reaped)
	}
	j.metrics.AddReaped(j.Name(), totalReaped)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"sessions_scanned": len(rows),
		"groups":           len(groups),
		"sessions_reaped":  totalReaped,
	})
	j.logg.Info(logCtx, "duplicate session sweep complete")
	return sweepErr
}

func (j *duplicateSessionsJob) reapGroup(ctx context.Context, group duplicateGroup) error {
	ids := make([]uuid.UUID, 0, len(group.reaped))
	tokens := make([]string, 0, len(group.reaped))
	for _, session := range group.reaped {
		ids = append(ids, session.ID)
		tokens = append(tokens, session.Token)
	}

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := j.repo.WithTx(tx).DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionsReaped,
			AggregateType: enums.AggregateSession,
			AggregateID:   group.survivor.ID,
			Data: map[string]any{
				"survivorToken": group.survivor.Token,
				"reapedTokens":  tokens,
				"reapedCount":   len(tokens),
			},
			Version: 1,
		})
	})
	if err != nil {
		return fmt.Errorf("reaping duplicates of %s: %w", group.survivor.Token, err)
	}
	return nil
}

// groupDuplicates buckets non-expired sessions by client fingerprint and
// minute-truncated creation time. Rows must be ordered newest first; the first
// session seen in each bucket is the survivor.
func groupDuplicates(rows []models.GuestSession, now time.Time) []duplicateGroup {
	byBucket := map[string]int{}
	var groups []duplicateGroup

	for _, session := range rows {
		if session.Expired(now) {
			continue
		}
		key := fmt.Sprintf("%s|%s|%d",
			session.UserAgent,
			session.SourceAddr,
			session.CreatedAt.UTC().Truncate(fingerprintBucket).Unix(),
		)
		idx, seen := byBucket[key]
		if !seen {
			byBucket[key] = len(groups)
			groups = append(groups, duplicateGroup{survivor: session})
			continue
		}
		groups[idx].reaped = append(groups[idx].reaped, session)
	}

	kept := groups[:0]
	for _, group := range groups {
		if len(group.reaped) > 0 {
			kept = append(kept, group)
		}
	}
	return kept
}
