package projectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/app/models"
)

// SessionDoc is the indexed form of a session. Its document id is the session id.
type SessionDoc struct {
	Topic            string `json:"topic"`
	TechRequirements string `json:"tech_requirements"`
	Description      string `json:"description"`
	DurationHours    int    `json:"duration_hours"`
	IsSpecial        bool   `json:"is_special"`
	CourseID         int64  `json:"course_id"`
}

// MaterialDoc is the indexed form of a session material, with its session's facets.
type MaterialDoc struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	SessionID        int64  `json:"session_id"`
	Topic            string `json:"topic"`
	TechRequirements string `json:"tech_requirements"`
}

// SessionsMapping and MaterialsMapping are the explicit index mappings.
const (
	SessionsMapping = `{"mappings":{"properties":{
		"topic":{"type":"text","fields":{"keyword":{"type":"keyword"}}},
		"tech_requirements":{"type":"keyword"},
		"description":{"type":"text"},
		"duration_hours":{"type":"integer"},
		"is_special":{"type":"boolean"},
		"course_id":{"type":"long"}}}}`

	MaterialsMapping = `{"mappings":{"properties":{
		"name":{"type":"text"},
		"description":{"type":"text"},
		"session_id":{"type":"long"},
		"topic":{"type":"keyword"},
		"tech_requirements":{"type":"keyword"}}}}`
)

// SearchStore is an inverted-index store. Index must replace the document with the given
// id, so repeated indexing is idempotent.
type SearchStore interface {
	EnsureIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index string, id int64, doc any) error
}

// SearchIndexes names the two indices.
type SearchIndexes struct {
	Sessions  string
	Materials string
}

// DefaultSearchIndexes are the index names used when none are configured.
var DefaultSearchIndexes = SearchIndexes{Sessions: "sessions", Materials: "session_materials"}

// SearchIndexer indexes free-text session and material fields keyed by canonical id.
type SearchIndexer struct {
	store   SearchStore
	retrier Retrier
	indexes SearchIndexes
	log     zerolog.Logger
}

// NewSearchIndexer creates a search indexer
func NewSearchIndexer(store SearchStore, retrier Retrier, indexes SearchIndexes, log zerolog.Logger) *SearchIndexer {
	return &SearchIndexer{store: store, retrier: retrier, indexes: indexes, log: log}
}

func (p *SearchIndexer) Name() string { return StoreSearch }

func (p *SearchIndexer) Project(ctx context.Context, snap *models.Snapshot) *StoreReport {
	report := NewStoreReport(StoreSearch)

	sessionsReady := p.ensure(ctx, p.indexes.Sessions, SessionsMapping, report)
	materialsReady := p.ensure(ctx, p.indexes.Materials, MaterialsMapping, report)

	if sessionsReady {
		for _, s := range snap.Sessions {
			doc := SessionDoc{
				Topic:            s.Topic,
				TechRequirements: s.TechRequirements,
				Description:      s.Description,
				DurationHours:    s.DurationHours,
				IsSpecial:        s.IsSpecial,
				CourseID:         s.CourseID,
			}
			p.index(ctx, models.EntitySession, p.indexes.Sessions, s.ID, doc, report)
		}
	} else {
		report.Skip(len(snap.Sessions))
	}

	if materialsReady {
		sessions := snap.Index().Sessions
		for _, m := range snap.SessionMaterials {
			doc := MaterialDoc{Name: m.Name, Description: m.Description, SessionID: m.SessionID}
			if s, ok := sessions[m.SessionID]; ok {
				doc.Topic = s.Topic
				doc.TechRequirements = s.TechRequirements
			}
			p.index(ctx, models.EntitySessionMaterial, p.indexes.Materials, m.ID, doc, report)
		}
	} else {
		report.Skip(len(snap.SessionMaterials))
	}

	p.log.Info().Int("committed", report.Committed).Int("failed", report.Failed).Int("skipped", report.Skipped).Msg("search projection finished")
	return report
}

func (p *SearchIndexer) ensure(ctx context.Context, index, mapping string, report *StoreReport) bool {
	err := p.retrier.Do(ctx, StoreSearch, func(ctx context.Context) error {
		return p.store.EnsureIndex(ctx, index, mapping)
	})
	if err != nil {
		p.log.Error().Err(err).Str("index", index).Msg("index setup failed")
		report.Fail(err)
		return false
	}
	return true
}

func (p *SearchIndexer) index(ctx context.Context, t models.EntityType, index string, id int64, doc any, report *StoreReport) {
	err := p.retrier.Do(ctx, StoreSearch, func(ctx context.Context) error {
		return p.store.Index(ctx, index, id, doc)
	})
	if err != nil {
		p.log.Warn().Err(err).Str("index", index).Int64("id", id).Msg("indexing failed")
		report.Fail(err)
		return
	}
	report.Commit(t, 1)
}
