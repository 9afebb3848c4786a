package cron

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepaliveJobPingsConfiguredURL(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	job, err := NewKeepaliveJob(KeepaliveJobParams{Logger: testLogger(), URL: server.URL})
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, hits)
}

func TestKeepaliveJobReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	job, err := NewKeepaliveJob(KeepaliveJobParams{Logger: testLogger(), URL: server.URL})
	require.NoError(t, err)

	require.Error(t, job.Run(context.Background()))
}

func TestKeepaliveJobDisabledWithoutURL(t *testing.T) {
	job, err := NewKeepaliveJob(KeepaliveJobParams{Logger: testLogger()})
	require.NoError(t, err)
	assert.Nil(t, job)
}
