package services

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/app/repositories"
	"github.com/yigit/unisync/internal/db"
	"github.com/yigit/unisync/internal/db/memory"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/filestorage"
	"github.com/yigit/unisync/internal/pkg/metrics"
	"github.com/yigit/unisync/internal/seed"
)

type harness struct {
	svc      *SyncService
	writer   *repositories.SQLiteWriter
	graph    *memory.Graph
	docs     *memory.Documents
	cache    *memory.Cache
	search   *memory.Search
	archive  *ReportArchive
	registry *prometheus.Registry
}

func newHarness(t *testing.T, batchSize int) *harness {
	t.Helper()
	ctx := context.Background()

	lite, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "unisync.db"))
	require.NoError(t, err)
	writer := repositories.NewSQLiteWriter(lite, batchSize)
	require.NoError(t, writer.Migrate(ctx))
	t.Cleanup(func() { _ = writer.Close() })

	h := &harness{
		writer:   writer,
		graph:    memory.NewGraph(),
		docs:     memory.NewDocuments(),
		cache:    memory.NewCache(),
		search:   memory.NewSearch(),
		archive:  NewReportArchive(filestorage.NewMemoryStorage()),
		registry: prometheus.NewRegistry(),
	}
	rec, err := metrics.NewRecorder(h.registry)
	require.NoError(t, err)

	// relational batches touch disk; derived stores are in memory and should answer at once
	relational := fastPolicy()
	relational.CallTimeout = 5 * time.Second
	relational.Metrics = rec
	retry := fastPolicy()
	retry.CallTimeout = 20 * time.Millisecond
	retry.Metrics = rec
	log := zerolog.Nop()

	h.svc = NewSyncService(writer, []projectors.Projector{
		projectors.NewGraphProjector(h.graph, retry, log),
		projectors.NewDocumentProjector(h.docs, retry, log),
		projectors.NewCacheProjector(h.cache, retry, log),
		projectors.NewSearchIndexer(h.search, retry, projectors.DefaultSearchIndexes, log),
	}, relational, h.archive, rec, log)
	return h
}

func scenarioGenerator(t *testing.T) *seed.Generator {
	t.Helper()
	p := seed.DefaultParams()
	p.Seed = 7
	p.Organizations = 1
	p.Divisions = seed.Exactly(2)
	p.Departments = seed.Exactly(3)
	p.Specialties = seed.PerParent(2)
	p.Groups = seed.Exactly(5)
	p.Students = seed.Exactly(20)
	g, err := seed.NewGenerator(p)
	require.NoError(t, err)
	return g
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 16)

	run, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.State, run.Inconsistent)
	assert.Empty(t, run.Inconsistent)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, int64(7), run.Seed)

	snap, err := h.writer.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Students, 20)

	records := make(map[string]bool)
	for _, s := range snap.Students {
		records[s.EnrollmentRecord] = true
	}
	assert.Len(t, records, 20)
	assert.Equal(t, len(snap.Students), h.cache.Len())

	doc, err := h.docs.GetOrganization(ctx, snap.Organizations[0].ID)
	require.NoError(t, err)
	require.Len(t, doc.Divisions, 2)
	departments := 0
	for _, d := range doc.Divisions {
		departments += len(d.Departments)
	}
	assert.Equal(t, 3, departments)

	assert.Equal(t, 20, h.graph.NodeCount(projectors.LabelStudent))
	assert.Equal(t, len(snap.AttendanceRecords), h.graph.EdgeCount(projectors.RelAttended))
	assert.Equal(t, len(snap.Sessions), h.search.Count("sessions"))
	assert.Equal(t, len(snap.SessionMaterials), h.search.Count("session_materials"))

	// identifiers are shared across stores
	for _, s := range snap.Sessions {
		_, ok := h.search.Doc("sessions", s.ID)
		assert.True(t, ok, "session %d", s.ID)
	}
	for _, s := range snap.Students {
		summary, err := projectors.LookupStudent(ctx, h.cache, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.EnrollmentRecord, summary.EnrollmentRecord)
	}

	assert.Equal(t, 20, run.Counts[models.EntityStudent])
	for _, name := range projectors.Stores {
		assert.True(t, run.Stores[name].Consistent(), name)
	}

	latest, err := h.archive.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, StateCompleted, latest.State)

	n, err := testutil.GatherAndCount(h.registry, "unisync_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchTimeoutLeavesOnlySearchInconsistent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 16)
	h.search.Hook = func(ctx context.Context, op string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	run, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	assert.Equal(t, StatePartiallyFailed, run.State)
	assert.Equal(t, []string{projectors.StoreSearch}, run.Inconsistent)

	search := run.Stores[projectors.StoreSearch]
	assert.Zero(t, search.Committed)
	assert.Equal(t, 2, search.Failures[apperrors.KindTimeout])
	assert.Equal(t, run.Counts[models.EntitySession]+run.Counts[models.EntitySessionMaterial], search.Skipped)

	for _, name := range []string{projectors.StoreGraph, projectors.StoreDocument, projectors.StoreCache} {
		assert.True(t, run.Stores[name].Consistent(), name)
	}
	assert.Empty(t, run.Halted)
	assert.Equal(t, 20, h.cache.Len())
}

// duplicateRecords makes the fourth student of every batch reuse the first one's record.
type duplicateRecords struct {
	*seed.Generator
}

func (d duplicateRecords) Drafts(t models.EntityType, snap *models.Snapshot) iter.Seq2[models.Row, error] {
	seq := d.Generator.Drafts(t, snap)
	if t != models.EntityStudent {
		return seq
	}
	return func(yield func(models.Row, error) bool) {
		i, first := 0, ""
		for row, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			s := row.(*models.Student)
			switch i {
			case 0:
				first = s.EnrollmentRecord
			case 3:
				s.EnrollmentRecord = first
			}
			i++
			if !yield(row, nil) {
				return
			}
		}
	}
}

// droppedAfterFirstChunk commits the first chunk of the first multi-chunk batch, then
// reports a lost connection as if the link went down before the next chunk.
type droppedAfterFirstChunk struct {
	*repositories.SQLiteWriter
	chunk   int
	tripped bool
}

func (w *droppedAfterFirstChunk) InsertBatch(ctx context.Context, rows []models.Row) error {
	if w.tripped || len(rows) <= w.chunk {
		return w.SQLiteWriter.InsertBatch(ctx, rows)
	}
	w.tripped = true
	if err := w.SQLiteWriter.InsertBatch(ctx, rows[:w.chunk]); err != nil {
		return err
	}
	return apperrors.NewSyncError(apperrors.KindConnectionLost, repositories.StoreName, "", errors.New("connection reset by peer"))
}

func TestRetryAfterPartialCommitDoesNotDuplicateRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	writer := &droppedAfterFirstChunk{SQLiteWriter: h.writer, chunk: 2}
	h.svc.relational = writer

	run, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	require.True(t, writer.tripped)
	assert.Equal(t, StateCompleted, run.State, run.Inconsistent)

	snap, err := h.writer.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.Counts, snap.Counts(), "no row was inserted twice")
	// three departments span two chunks; the connection dropped between them
	assert.Len(t, snap.Departments, 3)
	assert.Equal(t, 3, h.graph.NodeCount(projectors.LabelDepartment))
}

func TestSecondRunWithoutResetAvoidsExistingRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 16)

	first, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, first.State)

	// same seed, so the generator would draw the same records again
	second, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, second.State)
	assert.Zero(t, second.Relational.Failures[apperrors.KindWriteRejected])
	assert.Equal(t, 20, second.Counts[models.EntityStudent])
	assert.Positive(t, second.Counts[models.EntityAttendanceRecord])

	snap, err := h.writer.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Students, 40)
}

func TestRejectedDraftIsDroppedAndRunContinues(t *testing.T) {
	ctx := context.Background()
	// small chunks: the first chunk is already committed when the duplicate is hit
	h := newHarness(t, 2)

	run, err := h.svc.Run(ctx, duplicateRecords{scenarioGenerator(t)})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run.State)
	assert.Equal(t, 1, run.Relational.Failures[apperrors.KindWriteRejected])
	assert.Equal(t, 19, run.Counts[models.EntityStudent])

	snap, err := h.writer.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Students, 19)
	assert.Equal(t, 19, h.cache.Len())
}

// exhaustedGroups fails generation of groups.
type exhaustedGroups struct {
	*seed.Generator
}

func (e exhaustedGroups) Drafts(t models.EntityType, snap *models.Snapshot) iter.Seq2[models.Row, error] {
	if t != models.EntityGroup {
		return e.Generator.Drafts(t, snap)
	}
	return func(yield func(models.Row, error) bool) {
		yield(nil, apperrors.NewSyncError(apperrors.KindGenerationExhausted, "", string(t), errors.New("no names left")))
	}
}

func TestGenerationExhaustedHaltsDependents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 16)

	run, err := h.svc.Run(ctx, exhaustedGroups{scenarioGenerator(t)})
	require.NoError(t, err)
	assert.Equal(t, StatePartiallyFailed, run.State)
	assert.Equal(t, []string{repositories.StoreName}, run.Inconsistent)
	assert.ElementsMatch(t, []models.EntityType{
		models.EntityGroup, models.EntityStudent, models.EntityScheduleSlot, models.EntityAttendanceRecord,
	}, run.Halted)
	assert.Equal(t, 1, run.Relational.Failures[apperrors.KindGenerationExhausted])

	// independent branches still went through
	assert.Positive(t, run.Counts[models.EntitySessionMaterial])
	assert.Zero(t, run.Counts[models.EntityStudent])
	assert.Zero(t, h.cache.Len())
	assert.Equal(t, 1, h.docs.Len())
}

// downWriter is a store of record that cannot be reached.
type downWriter struct {
	calls int
}

func (w *downWriter) InsertBatch(context.Context, []models.Row) error {
	w.calls++
	return apperrors.NewSyncError(apperrors.KindConnectionLost, repositories.StoreName, "", errors.New("connection refused"))
}

func (w *downWriter) LoadSnapshot(context.Context) (*models.Snapshot, error) {
	return nil, apperrors.NewSyncError(apperrors.KindConnectionLost, repositories.StoreName, "", errors.New("connection refused"))
}

func (w *downWriter) EnrollmentRecords(context.Context) ([]string, error) {
	return nil, apperrors.NewSyncError(apperrors.KindConnectionLost, repositories.StoreName, "", errors.New("connection refused"))
}

func TestUnreachableStoreOfRecordFailsRun(t *testing.T) {
	ctx := context.Background()
	graph := memory.NewGraph()
	writer := &downWriter{}
	svc := NewSyncService(writer, []projectors.Projector{
		projectors.NewGraphProjector(graph, projectors.Once, zerolog.Nop()),
	}, fastPolicy(), nil, nil, zerolog.Nop())

	run, err := svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, run.State)
	assert.NotNil(t, run.FinishedAt)
	assert.Contains(t, run.Halted, models.EntityAttendanceRecord)
	assert.Equal(t, 3, writer.calls)
	assert.Zero(t, graph.NodeCount(""))
	assert.Empty(t, run.Stores)

	_, err = svc.Project(ctx)
	assert.Error(t, err)
}

func TestProjectRebuildsSelectedStores(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 16)

	first, err := h.svc.Run(ctx, scenarioGenerator(t))
	require.NoError(t, err)
	nodes, edges := h.graph.NodeCount(""), h.graph.EdgeCount("")

	require.NoError(t, h.graph.Reset(ctx))
	require.NoError(t, h.cache.Reset(ctx))

	run, err := h.svc.Project(ctx, projectors.StoreGraph)
	require.NoError(t, err)
	assert.Equal(t, KindProject, run.Kind)
	assert.Equal(t, StateCompleted, run.State)
	assert.Len(t, run.Stores, 1)
	assert.Equal(t, nodes, h.graph.NodeCount(""))
	assert.Equal(t, edges, h.graph.EdgeCount(""))
	assert.Zero(t, h.cache.Len(), "cache was not selected")

	runs, total, err := h.archive.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	_, err = h.svc.Project(ctx, "warehouse")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestCancelledRunKeepsCommittedData(t *testing.T) {
	h := newHarness(t, 16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := h.svc.Run(ctx, scenarioGenerator(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, run.State)

	// projection can be re-run afterwards
	again, err := h.svc.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, again.State)
}
