package projectors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// StudentSummary is the point-lookup record cached per student.
type StudentSummary struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	EnrollmentRecord string `json:"enrollment_record"`
	GroupID          int64  `json:"group_id"`
	GroupName        string `json:"group_name"`
	CourseNumber     int    `json:"course_number"`
	DepartmentID     int64  `json:"department_id"`
}

// CacheStore is a key-value store used as a secondary store: writes never expire.
type CacheStore interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// CacheProjector writes one summary per student under "student:<id>".
type CacheProjector struct {
	store   CacheStore
	retrier Retrier
	log     zerolog.Logger
}

// NewCacheProjector creates a cache projector
func NewCacheProjector(store CacheStore, retrier Retrier, log zerolog.Logger) *CacheProjector {
	return &CacheProjector{store: store, retrier: retrier, log: log}
}

func (p *CacheProjector) Name() string { return StoreCache }

func (p *CacheProjector) Project(ctx context.Context, snap *models.Snapshot) *StoreReport {
	report := NewStoreReport(StoreCache)
	idx := snap.Index()

	for _, s := range snap.Students {
		summary := StudentSummary{
			ID:               s.ID,
			FullName:         s.FullName,
			EnrollmentRecord: s.EnrollmentRecord,
			GroupID:          s.GroupID,
		}
		if g, ok := idx.Groups[s.GroupID]; ok {
			summary.GroupName = g.Name
			summary.CourseNumber = g.CourseNumber
			summary.DepartmentID = g.DepartmentID
		}

		value, err := json.Marshal(summary)
		if err != nil {
			report.Fail(apperrors.NewSyncError(apperrors.KindUnknown, StoreCache, string(models.EntityStudent), err))
			continue
		}

		key := models.EntityStudent.CacheKey(s.ID)
		err = p.retrier.Do(ctx, StoreCache, func(ctx context.Context) error {
			return p.store.Set(ctx, key, value)
		})
		if err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			report.Fail(err)
			continue
		}
		report.Commit(models.EntityStudent, 1)
	}

	p.log.Info().Int("committed", report.Committed).Int("failed", report.Failed).Msg("cache projection finished")
	return report
}

// LookupStudent reads a cached student summary back.
func LookupStudent(ctx context.Context, store CacheStore, id int64) (*StudentSummary, error) {
	raw, err := store.Get(ctx, models.EntityStudent.CacheKey(id))
	if err != nil {
		return nil, err
	}
	var s StudentSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode student %d: %w", id, err)
	}
	return &s, nil
}
