package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/metrics"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		CallTimeout:     50 * time.Millisecond,
		Log:             zerolog.Nop(),
	}
}

func connLost() error {
	return apperrors.NewSyncError(apperrors.KindConnectionLost, "graph", "", errors.New("connection reset"))
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "graph", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return connLost()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "graph", func(ctx context.Context) error {
		calls++
		return connLost()
	})
	assert.Equal(t, apperrors.KindConnectionLost, apperrors.KindOf(err))
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRepeatPermanentErrors(t *testing.T) {
	for _, kind := range []apperrors.Kind{apperrors.KindWriteRejected, apperrors.KindProjectionDeferred, apperrors.KindGenerationExhausted} {
		calls := 0
		err := fastPolicy().Do(context.Background(), "relational", func(ctx context.Context) error {
			calls++
			return apperrors.NewSyncError(kind, "relational", "student", errors.New("no"))
		})
		assert.Equal(t, kind, apperrors.KindOf(err))
		assert.Equal(t, 1, calls, kind)
	}
}

func TestRetryTurnsSlowCallsIntoTimeouts(t *testing.T) {
	p := fastPolicy()
	p.CallTimeout = 10 * time.Millisecond
	calls := 0
	err := p.Do(context.Background(), "search", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
	assert.Equal(t, 3, calls)
}

func TestRetryStopsWhenRunIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy().Do(ctx, "cache", func(ctx context.Context) error {
		calls++
		cancel()
		return connLost()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCountsRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	p := fastPolicy()
	p.Metrics = m
	_ = p.Do(context.Background(), "graph", func(ctx context.Context) error { return connLost() })

	n, err := testutil.GatherAndCount(reg, "unisync_store_call_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
