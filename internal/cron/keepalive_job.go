package cron

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

const keepaliveTimeout = 10 * time.Second

type KeepaliveJobParams struct {
	Logger *logger.Logger
	URL    string
	Client *http.Client
}

// NewKeepaliveJob builds a job that pings the public URL so free-tier hosts
// do not idle the API out. Returns a nil job when no URL is configured.
func NewKeepaliveJob(params KeepaliveJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.URL == "" {
		return nil, nil
	}
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: keepaliveTimeout}
	}
	return &keepaliveJob{
		logg:   params.Logger,
		url:    params.URL,
		client: client,
	}, nil
}

type keepaliveJob struct {
	logg   *logger.Logger
	url    string
	client *http.Client
}

func (j *keepaliveJob) Name() string { return "keepalive" }

func (j *keepaliveJob) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("building keepalive request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinging %s: %w", j.url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			j.logg.Warn(ctx, "closing keepalive response body failed")
		}
	}()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("keepalive ping returned %d", resp.StatusCode)
	}
	logCtx := j.logg.WithField(ctx, "status", resp.StatusCode)
	j.logg.Info(logCtx, "keepalive ping sent")
	return nil
}
