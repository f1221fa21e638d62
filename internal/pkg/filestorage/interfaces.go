package filestorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/unisync/internal/config"
)

// ErrNotExist is returned when a path has no stored file.
var ErrNotExist = errors.New("file does not exist")

// FileInfo represents information about a stored file
type FileInfo struct {
	Path     string    // Path relative to the storage root
	FileSize int64     // Size in bytes
	ModTime  time.Time // Last modification time as reported by the backend
}

// FileStorage defines the interface for file storage operations. Paths are slash
// separated and relative to the storage root.
type FileStorage interface {
	// Save writes data to path, replacing any previous content
	Save(ctx context.Context, path string, data []byte) error

	// Read returns the content stored at path or ErrNotExist
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns the files whose path starts with prefix, sorted by path
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Delete removes a file; deleting a missing file is not an error
	Delete(ctx context.Context, path string) error
}

// New opens the storage selected by cfg.Reports.Driver.
func New(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	switch cfg.Reports.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Reports.Path)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:   cfg.Reports.Bucket,
			Region:   cfg.Reports.Region,
			Endpoint: cfg.Reports.Endpoint,
			Prefix:   cfg.Reports.Prefix,
		})
	case "memory":
		return NewMemoryStorage(), nil
	}
	return nil, fmt.Errorf("unknown reports driver %q", cfg.Reports.Driver)
}
