package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
	"github.com/benjamins-shop/storefront-backend/pkg/metrics"
)

type ExpiredSessionsJobParams struct {
	Logger     *logger.Logger
	Repository *sessions.Repository
	Metrics    *metrics.CronJobMetrics
}

// NewExpiredSessionsJob builds the sweep that deletes sessions past their
// expiry, carts included.
func NewExpiredSessionsJob(params ExpiredSessionsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	return &expiredSessionsJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type expiredSessionsJob struct {
	logg    *logger.Logger
	repo    *sessions.Repository
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *expiredSessionsJob) Name() string { return "expired-sessions" }

func (j *expiredSessionsJob) Run(ctx context.Context) error {
	deleted, err := j.repo.DeleteExpired(ctx, j.now())
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	j.metrics.AddReaped(j.Name(), int(deleted))

	logCtx := j.logg.WithField(ctx, "sessions_deleted", deleted)
	j.logg.Info(logCtx, "expired session sweep complete")
	return nil
}
