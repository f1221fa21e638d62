package projectors

import (
	"context"
	"errors"

	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// Store names as they appear in run reports.
const (
	StoreGraph    = "graph"
	StoreDocument = "document"
	StoreCache    = "cache"
	StoreSearch   = "search"
)

// Stores lists the derived stores in report order.
var Stores = []string{StoreGraph, StoreDocument, StoreCache, StoreSearch}

// Projector derives one store's view from a committed snapshot. Project never fails as a
// whole; per-item outcomes are recorded in the returned report.
type Projector interface {
	Name() string
	Project(ctx context.Context, snap *models.Snapshot) *StoreReport
}

// Retrier runs a single store call under the pipeline's timeout and backoff policy.
type Retrier interface {
	Do(ctx context.Context, store string, fn func(ctx context.Context) error) error
}

// RetrierFunc adapts a function to Retrier.
type RetrierFunc func(ctx context.Context, store string, fn func(ctx context.Context) error) error

func (f RetrierFunc) Do(ctx context.Context, store string, fn func(ctx context.Context) error) error {
	return f(ctx, store, fn)
}

// Once calls fn exactly once; useful where no retry policy is wanted.
var Once = RetrierFunc(func(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
})

const maxRecordedErrors = 10

// StoreReport is the per-store outcome of a run.
type StoreReport struct {
	Store     string                    `json:"store"`
	Committed int                       `json:"committed"`
	Failed    int                       `json:"failed"`
	Skipped   int                       `json:"skipped,omitempty"`
	Failures  map[apperrors.Kind]int    `json:"failure_kinds,omitempty"`
	Entities  map[models.EntityType]int `json:"entities,omitempty"`
	Errors    []string                  `json:"errors,omitempty"`
}

// NewStoreReport creates an empty report for store.
func NewStoreReport(store string) *StoreReport {
	return &StoreReport{
		Store:    store,
		Failures: make(map[apperrors.Kind]int),
		Entities: make(map[models.EntityType]int),
	}
}

// Commit records n successfully written items of entity type t.
func (r *StoreReport) Commit(t models.EntityType, n int) {
	r.Committed += n
	r.Entities[t] += n
}

// Fail records one failed item.
func (r *StoreReport) Fail(err error) {
	r.Failed++
	r.Failures[apperrors.KindOf(err)]++
	if len(r.Errors) < maxRecordedErrors {
		r.Errors = append(r.Errors, err.Error())
	}
}

// Skip records n items that were never attempted.
func (r *StoreReport) Skip(n int) {
	r.Skipped += n
}

// Consistent reports whether the store holds every item it was asked to hold.
func (r *StoreReport) Consistent() bool {
	return r.Failed == 0 && r.Skipped == 0
}

// deferred is one item whose dependency was not yet visible in the target store.
type deferred struct {
	entity models.EntityType
	call   func(ctx context.Context) error
}

// runDeferred retries every deferred item once; anything still failing is failed.
func runDeferred(ctx context.Context, retrier Retrier, store string, queue []deferred, report *StoreReport) {
	for _, d := range queue {
		if err := retrier.Do(ctx, store, d.call); err != nil {
			report.Fail(err)
			continue
		}
		report.Commit(d.entity, 1)
	}
}

// apply runs one item call and sorts the outcome into committed, deferred or failed.
func apply(ctx context.Context, retrier Retrier, store string, t models.EntityType, call func(ctx context.Context) error, queue *[]deferred, report *StoreReport) {
	err := retrier.Do(ctx, store, call)
	switch {
	case err == nil:
		report.Commit(t, 1)
	case apperrors.KindOf(err) == apperrors.KindProjectionDeferred:
		*queue = append(*queue, deferred{entity: t, call: call})
	default:
		report.Fail(err)
	}
}

// Deferred builds a ProjectionDeferred error for a missing dependency.
func Deferred(store, entity, msg string) error {
	return apperrors.NewSyncError(apperrors.KindProjectionDeferred, store, entity, errors.New(msg))
}
