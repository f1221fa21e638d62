package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/unisync/internal/app/migrations"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/db"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

// PostgresWriter handles store-of-record operations on PostgreSQL
type PostgresWriter struct {
	db        *db.PostgresDB
	migrator  *migrations.Migrator
	batchSize int
}

// NewPostgresWriter creates a new postgres-backed store of record
func NewPostgresWriter(pg *db.PostgresDB, batchSize int) *PostgresWriter {
	return &PostgresWriter{
		db:        pg,
		migrator:  migrations.NewPostgresMigrator(pg.Pool),
		batchSize: batchSize,
	}
}

// Migrate applies the schema
func (w *PostgresWriter) Migrate(ctx context.Context) error {
	return w.migrator.Apply(ctx)
}

// InsertBatch implements Writer
func (w *PostgresWriter) InsertBatch(ctx context.Context, rows []models.Row) error {
	t, err := checkBatch(rows)
	if err != nil || len(rows) == 0 {
		return err
	}

	for _, chunk := range pendingChunks(rows, w.batchSize) {
		ids := make([]int64, len(chunk))
		err := w.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			for i, pos := range chunk {
				row := rows[pos]
				if err := tx.QueryRow(ctx, insertQuery(DialectPostgres, row), row.Values()...).Scan(&ids[i]); err != nil {
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
func (w *PostgresWriter) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	return loadAll(ctx, func(ctx context.Context, t models.EntityType) ([]models.Row, error) {
		rs, err := w.db.Pool.Query(ctx, selectQuery(t))
		if err != nil {
			return nil, err
		}
		defer rs.Close()
		return collect(t, rs)
	})
}

// EnrollmentRecords implements RecordReader
func (w *PostgresWriter) EnrollmentRecords(ctx context.Context) ([]string, error) {
	rs, err := w.db.Pool.Query(ctx, enrollmentRecordsQuery)
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
func (w *PostgresWriter) Reset(ctx context.Context) error {
	return w.migrator.Reset(ctx)
}

func (w *PostgresWriter) Close() error {
	return w.db.Close()
}
