package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ijara_backend/pkg/logger"
)

type pruneFunc func(ctx context.Context) (int64, error)

func (f pruneFunc) Prune(ctx context.Context) (int64, error) { return f(ctx) }

type backlogFunc func(ctx context.Context) (int64, error)

func (f backlogFunc) PendingCount(ctx context.Context) (int64, error) { return f(ctx) }

func TestPruneRateLimits(t *testing.T) {
	var out, errOut bytes.Buffer
	log := logger.NewWithWriter(&out, &errOut)

	PruneRateLimits(pruneFunc(func(ctx context.Context) (int64, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return 3, nil
	}), log)
	assert.Contains(t, out.String(), "pruned 3 expired rate limit counters")

	PruneRateLimits(pruneFunc(func(context.Context) (int64, error) {
		return 0, errors.New("connection refused")
	}), log)
	assert.Contains(t, errOut.String(), "connection refused")
}

func TestReportBacklog(t *testing.T) {
	var out, errOut bytes.Buffer
	log := logger.NewWithWriter(&out, &errOut)

	ReportBacklog(backlogFunc(func(context.Context) (int64, error) { return 4, nil }), log)
	assert.Contains(t, errOut.String(), "WARN: ")
	assert.Contains(t, errOut.String(), "4 ads are waiting for moderation")

	out.Reset()
	ReportBacklog(backlogFunc(func(context.Context) (int64, error) { return 0, nil }), log)
	assert.Contains(t, out.String(), "moderation queue is empty")
}

func TestSchedulerRegistersJobs(t *testing.T) {
	var buf bytes.Buffer
	s := New(logger.NewWithWriter(&buf, &buf))

	require.NoError(t, s.AddRateLimitPrune(pruneFunc(func(context.Context) (int64, error) { return 0, nil })))
	require.NoError(t, s.AddModerationReport(backlogFunc(func(context.Context) (int64, error) { return 0, nil })))
	assert.Len(t, s.c.Entries(), 2)

	s.Start()
	s.Stop()
}
