package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
	"github.com/yigit/unisync/internal/pkg/metrics"
)

// RetryPolicy bounds every store call with a timeout and retries transient failures
// with exponential backoff. It is shared by the relational phase and all projectors.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CallTimeout     time.Duration

	Metrics *metrics.Recorder
	Log     zerolog.Logger
}

// NewRetryPolicy builds the policy from the retry section of cfg.
func NewRetryPolicy(cfg *config.Config, m *metrics.Recorder, log zerolog.Logger) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		CallTimeout:     cfg.Retry.CallTimeout,
		Metrics:         m,
		Log:             log,
	}
}

func (p *RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := max(p.MaxAttempts, 1)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs fn until it succeeds, fails with a non-retriable error, or the attempt budget
// is spent. The returned error is always classified.
func (p *RetryPolicy) Do(ctx context.Context, store string, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			p.Metrics.Retry(store)
		}

		err := p.call(ctx, store, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !apperrors.IsRetriable(err) {
			return backoff.Permanent(err)
		}
		p.Log.Debug().Err(err).Str("store", store).Int("attempt", attempt).Msg("store call failed, retrying")
		return err
	}

	err := backoff.Retry(op, p.backOff(ctx))
	if err == nil {
		return nil
	}
	var se *apperrors.SyncError
	if !errors.As(err, &se) {
		err = dberrors.Classify(store, "", err)
	}
	return err
}

func (p *RetryPolicy) call(ctx context.Context, store string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(callCtx)
	p.Metrics.ObserveCall(store, time.Since(start))
	if err == nil {
		return nil
	}

	// The call ran past its own deadline while the run itself is still live.
	var se *apperrors.SyncError
	if !errors.As(err, &se) && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.NewSyncError(apperrors.KindTimeout, store, "", err)
	}
	return dberrors.Classify(store, "", err)
}
