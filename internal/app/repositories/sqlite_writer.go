package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yigit/unisync/internal/app/migrations"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/db"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

// SQLiteWriter handles store-of-record operations on an embedded sqlite file
type SQLiteWriter struct {
	db        *db.SQLiteDB
	migrator  *migrations.Migrator
	batchSize int
}

// NewSQLiteWriter creates a new sqlite-backed store of record
func NewSQLiteWriter(lite *db.SQLiteDB, batchSize int) *SQLiteWriter {
	return &SQLiteWriter{
		db:        lite,
		migrator:  migrations.NewSQLiteMigrator(lite.DB),
		batchSize: batchSize,
	}
}

// Migrate applies the schema
func (w *SQLiteWriter) Migrate(ctx context.Context) error {
	return w.migrator.Apply(ctx)
}

// InsertBatch implements Writer
func (w *SQLiteWriter) InsertBatch(ctx context.Context, rows []models.Row) error {
	t, err := checkBatch(rows)
	if err != nil || len(rows) == 0 {
		return err
	}

	for _, chunk := range pendingChunks(rows, w.batchSize) {
		ids := make([]int64, len(chunk))
		err := w.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			for i, pos := range chunk {
				row := rows[pos]
				if err := tx.QueryRowContext(ctx, insertQuery(DialectSQLite, row), row.Values()...).Scan(&ids[i]); err != nil {
					return classify(t, pos, err)
				}
			}
			return nil
		})
		if err != nil {
			return classify(t, -1, err)
		}
		for i, pos := range chunk {
			rows[pos].SetID(ids[i])
		}
	}
	return nil
}

// LoadSnapshot implements Loader
func (w *SQLiteWriter) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return loadAll(ctx, func(ctx context.Context, t models.EntityType) ([]models.Row, error) {
		rs, err := w.db.DB.QueryContext(ctx, selectQuery(t))
		if err != nil {
			return nil, err
		}
		defer rs.Close()
		return collect(t, rs)
	})
}

// EnrollmentRecords implements RecordReader
func (w *SQLiteWriter) EnrollmentRecords(ctx context.Context) ([]string, error) {
	rs, err := w.db.DB.QueryContext(ctx, enrollmentRecordsQuery)
	if err != nil {
		return nil, dberrors.Classify(StoreName, string(models.EntityStudent), err)
	}
	defer rs.Close()

	var records []string
	for rs.Next() {
		var rec string
		if err := rs.Scan(&rec); err != nil {
			return nil, fmt.Errorf("scan enrollment record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rs.Err(); err != nil {
		return nil, dberrors.Classify(StoreName, string(models.EntityStudent), err)
	}
	return records, nil
}

// Reset drops and recreates every table
func (w *SQLiteWriter) Reset(ctx context.Context) error {
	return w.migrator.Reset(ctx)
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
