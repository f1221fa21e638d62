package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/app/repositories"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrNoProjectors is returned by Project when no derived store is enabled.
var ErrNoProjectors = errors.New("no derived store is enabled")

// DraftSource produces the drafts of one entity type from the already committed parents.
type DraftSource interface {
	Seed() int64
	// Reserve marks enrollment records that must not be generated again.
	Reserve(records ...string)
	Drafts(t models.EntityType, snap *models.Snapshot) iter.Seq2[models.Row, error]
}

// StoreOfRecord is what the coordinator needs from the relational store.
type StoreOfRecord interface {
	repositories.Writer
	repositories.Loader
	repositories.RecordReader
}

// SyncService is the consistency coordinator: it writes generated data to the store of
// record in dependency order, then projects the committed snapshot into the derived
// stores and reports per-store outcomes.
type SyncService struct {
	relational StoreOfRecord
	projectors []projectors.Projector
	retry      projectors.Retrier
	archive    *ReportArchive
	metrics    *metrics.Recorder
	logger     zerolog.Logger
}

// NewSyncService creates a new SyncService. archive and m may be nil.
func NewSyncService(
	relational StoreOfRecord,
	projs []projectors.Projector,
	retry projectors.Retrier,
	archive *ReportArchive,
	m *metrics.Recorder,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		relational: relational,
		projectors: projs,
		retry:      retry,
		archive:    archive,
		metrics:    m,
		logger:     logger,
	}
}

// Run generates a dataset from src, commits it and projects it into every derived store.
// The returned error is non-nil only when the run could not be carried out at all; store
// failures are reported in the Run.
func (s *SyncService) Run(ctx context.Context, src DraftSource) (*Run, error) {
	run := NewRun(KindGenerate)
	run.Seed = src.Seed()
	log := s.logger.With().Str("run_id", run.ID.String()).Logger()
	log.Info().Int64("seed", run.Seed).Msg("Run started")

	order, err := models.TopologicalOrder(models.Dependencies)
	if err != nil {
		return nil, err
	}

	snap, err := s.commitAll(ctx, run, src, order, log)
	if err != nil {
		run.Error = err.Error()
		_ = run.Transition(StateFailed)
		s.record(ctx, run, log)
		return run, err
	}
	run.Counts = snap.Counts()

	if len(snap.Organizations) == 0 {
		run.Error = "no organization could be committed"
		if err := run.Transition(StateFailed); err != nil {
			return nil, err
		}
		s.record(ctx, run, log)
		return run, nil
	}

	if err := run.Transition(StateRelationalCommitted); err != nil {
		return nil, err
	}
	if err := s.projectAll(ctx, run, snap, s.projectors, log); err != nil {
		return nil, err
	}
	s.record(ctx, run, log)
	return run, nil
}

// Project re-projects the snapshot held by the store of record into the named stores,
// or into every store when none are named.
func (s *SyncService) Project(ctx context.Context, stores ...string) (*Run, error) {
	selected, err := s.selectProjectors(stores)
	if err != nil {
		return nil, err
	}

	run := NewRun(KindProject)
	log := s.logger.With().Str("run_id", run.ID.String()).Logger()
	log.Info().Strs("stores", stores).Msg("Re-projection started")

	var snap *models.Snapshot
	err = s.retry.Do(ctx, repositories.StoreName, func(ctx context.Context) error {
		var err error
		snap, err = s.relational.LoadSnapshot(ctx)
		return err
	})
	if err != nil {
		run.Error = err.Error()
		_ = run.Transition(StateFailed)
		s.record(ctx, run, log)
		return run, fmt.Errorf("failed to load snapshot: %w", err)
	}
	run.Counts = snap.Counts()

	if err := run.Transition(StateRelationalCommitted); err != nil {
		return nil, err
	}
	if err := s.projectAll(ctx, run, snap, selected, log); err != nil {
		return nil, err
	}
	s.record(ctx, run, log)
	return run, nil
}

func (s *SyncService) selectProjectors(names []string) ([]projectors.Projector, error) {
	if len(s.projectors) == 0 {
		return nil, ErrNoProjectors
	}
	if len(names) == 0 {
		return s.projectors, nil
	}
	var out []projectors.Projector
	for _, name := range names {
		i := slices.IndexFunc(s.projectors, func(p projectors.Projector) bool { return p.Name() == name })
		if i < 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown or disabled store %q", name), nil)
		}
		out = append(out, s.projectors[i])
	}
	return out, nil
}

// commitAll writes every entity type in dependency order. A type that cannot be written
// halts itself and all of its dependents; the rest of the graph still proceeds.
func (s *SyncService) commitAll(ctx context.Context, run *Run, src DraftSource, order []models.EntityType, log zerolog.Logger) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	report := projectors.NewStoreReport(repositories.StoreName)
	run.Relational = report

	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return snap, err
		}
		if run.isHalted(t) {
			continue
		}
		if t == models.EntityStudent {
			if err := s.reserveRecords(ctx, src); err != nil {
				if ctx.Err() != nil {
					return snap, ctx.Err()
				}
				log.Error().Err(err).Msg("Failed to read existing enrollment records, halting dependents")
				report.Fail(err)
				run.halt(t)
				continue
			}
		}

		drafts, err := collectDrafts(src.Drafts(t, snap))
		if err != nil {
			log.Error().Err(err).Str("entity", string(t)).Msg("Generation failed, halting dependents")
			report.Fail(err)
			run.halt(t)
			continue
		}

		committed, err := s.writeBatch(ctx, t, drafts, report, log)
		snap.Add(committed...)
		report.Commit(t, len(committed))
		if err != nil {
			if ctx.Err() != nil {
				return snap, ctx.Err()
			}
			log.Error().Err(err).Str("entity", string(t)).Int("committed", len(committed)).Msg("Batch failed, halting dependents")
			report.Fail(err)
			report.Skip(len(drafts) - len(committed))
			run.halt(t)
			continue
		}
		log.Debug().Str("entity", string(t)).Int("committed", len(committed)).Msg("Batch committed")
	}

	if len(run.Halted) > 0 {
		log.Warn().Interface("halted", run.Halted).Msg("Entity types were not written")
	}
	return snap, nil
}

// reserveRecords hands the enrollment records of earlier runs to the generator, so a run
// without a reset does not collide with them.
func (s *SyncService) reserveRecords(ctx context.Context, src DraftSource) error {
	var records []string
	err := s.retry.Do(ctx, repositories.StoreName, func(ctx context.Context) error {
		var err error
		records, err = s.relational.EnrollmentRecords(ctx)
		return err
	})
	if err != nil {
		return err
	}
	src.Reserve(records...)
	return nil
}

func collectDrafts(seq iter.Seq2[models.Row, error]) ([]models.Row, error) {
	var out []models.Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// writeBatch inserts drafts, dropping every draft the store rejects and resubmitting the
// rest. A retried call sends the same batch again; the writer skips the rows earlier
// chunks already committed, so they keep their identifiers. It returns the committed rows
// in input order.
func (s *SyncService) writeBatch(ctx context.Context, t models.EntityType, drafts []models.Row, report *projectors.StoreReport, log zerolog.Logger) ([]models.Row, error) {
	dropped := make(map[models.Row]bool)
	committed := func() []models.Row {
		var out []models.Row
		for _, r := range drafts {
			if r.GetID() != 0 {
				out = append(out, r)
			}
		}
		return out
	}

	for {
		var batch []models.Row
		for _, r := range drafts {
			if r.GetID() == 0 && !dropped[r] {
				batch = append(batch, r)
			}
		}
		if len(batch) == 0 {
			return committed(), nil
		}

		err := s.retry.Do(ctx, repositories.StoreName, func(ctx context.Context) error {
			return s.relational.InsertBatch(ctx, batch)
		})
		if err == nil {
			return committed(), nil
		}

		idx, ok := apperrors.RejectedIndex(err)
		if !ok || idx >= len(batch) {
			return committed(), err
		}
		log.Warn().Err(err).Str("entity", string(t)).Int("index", idx).Msg("Draft rejected, dropping it")
		report.Fail(err)
		dropped[batch[idx]] = true
	}
}

// projectAll runs the projectors concurrently. A projector never cancels its siblings:
// each one records its own failures and the group only waits for all of them.
func (s *SyncService) projectAll(ctx context.Context, run *Run, snap *models.Snapshot, projs []projectors.Projector, log zerolog.Logger) error {
	if err := run.Transition(StateProjecting); err != nil {
		return err
	}

	reports := make([]*projectors.StoreReport, len(projs))
	var g errgroup.Group
	for i, p := range projs {
		g.Go(func() error {
			reports[i] = p.Project(ctx, snap)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range projs {
		run.Stores[p.Name()] = reports[i]
	}
	if err := run.finish(); err != nil {
		return err
	}

	if run.State == StatePartiallyFailed {
		log.Warn().Strs("inconsistent_stores", run.Inconsistent).Msg("Run finished with stale stores")
	}
	return nil
}

// record logs the summary, updates metrics and archives the report.
func (s *SyncService) record(ctx context.Context, run *Run, log zerolog.Logger) {
	summary := zerolog.Dict()
	for t, n := range run.Counts {
		summary.Int(string(t), n)
	}
	log.Info().Str("state", string(run.State)).Dict("counts", summary).Msg("Run finished")

	s.metrics.Run(string(run.State))
	reports := []*projectors.StoreReport{run.Relational}
	for _, name := range projectors.Stores {
		reports = append(reports, run.Stores[name])
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.metrics.Items(r.Store, metrics.OutcomeCommitted, r.Committed)
		s.metrics.Items(r.Store, metrics.OutcomeFailed, r.Failed)
		s.metrics.Items(r.Store, metrics.OutcomeSkipped, r.Skipped)
	}

	if s.archive == nil {
		return
	}
	// The run context may already be cancelled; the report is still worth keeping.
	if err := s.archive.Save(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Msg("Failed to archive run report")
	}
}
