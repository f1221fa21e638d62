package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/filestorage"
)

const runsPrefix = "runs/"

// ReportArchive stores run reports as JSON files named so that path order is start order.
type ReportArchive struct {
	storage filestorage.FileStorage
}

// NewReportArchive creates an archive on top of storage
func NewReportArchive(storage filestorage.FileStorage) *ReportArchive {
	return &ReportArchive{storage: storage}
}

func runPath(r *Run) string {
	return fmt.Sprintf("%s%s_%s.json", runsPrefix, r.StartedAt.UTC().Format("20060102T150405.000000000Z"), r.ID)
}

// Save writes the run report, replacing an earlier save of the same run.
func (a *ReportArchive) Save(ctx context.Context, r *Run) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", r.ID, err)
	}
	return a.storage.Save(ctx, runPath(r), data)
}

// List returns a page of runs, newest first, and the total number of archived runs.
func (a *ReportArchive) List(ctx context.Context, offset, limit int) ([]*Run, int, error) {
	files, err := a.storage.List(ctx, runsPrefix)
	if err != nil {
		return nil, 0, err
	}
	total := len(files)

	var out []*Run
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		r, err := a.read(ctx, files[i].Path)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, nil
}

// Latest returns the most recently started run.
func (a *ReportArchive) Latest(ctx context.Context) (*Run, error) {
	runs, _, err := a.List(ctx, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, apperrors.ErrRunNotFound
	}
	return runs[0], nil
}

// Get returns the run with the given id.
func (a *ReportArchive) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	files, err := a.storage.List(ctx, runsPrefix)
	if err != nil {
		return nil, err
	}
	suffix := "_" + id.String() + ".json"
	for _, f := range files {
		if strings.HasSuffix(f.Path, suffix) {
			return a.read(ctx, f.Path)
		}
	}
	return nil, apperrors.ErrRunNotFound
}

func (a *ReportArchive) read(ctx context.Context, path string) (*Run, error) {
	data, err := a.storage.Read(ctx, path)
	if errors.Is(err, filestorage.ErrNotExist) {
		return nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &r, nil
}
