package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

// StoreName is the name the store of record reports under.
const StoreName = "relational"

// Writer persists batches of one entity type to the store of record.
type Writer interface {
	// InsertBatch inserts rows in input order and assigns the generated identifiers back
	// onto them. Every chunk of at most the configured batch size is one transaction.
	// Rows that already carry an identifier are left alone, so a batch that failed after
	// some chunks committed can be submitted again as is. A rejected row is reported by
	// its position in rows.
	InsertBatch(ctx context.Context, rows []models.Row) error
}

// RecordReader lists the enrollment records already held by the store of record.
type RecordReader interface {
	EnrollmentRecords(ctx context.Context) ([]string, error)
}

// Loader reads the committed dataset back.
type Loader interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// RelationalStore is the full capability set of a store of record.
type RelationalStore interface {
	Writer
	Loader
	RecordReader
	Reset(ctx context.Context) error
	Close() error
}

// Dialect selects the placeholder syntax of generated statements.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// insertQuery builds INSERT ... RETURNING id for the row's table.
func insertQuery(d Dialect, row models.Row) string {
	cols := row.Columns()
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		row.EntityType().Table(), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

const enrollmentRecordsQuery = "SELECT enrollment_record FROM students ORDER BY id"

func selectQuery(t models.EntityType) string {
	row := models.NewRow(t)
	return fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", strings.Join(row.Columns(), ", "), t.Table())
}

// rowScanner is the part of pgx.Rows and *sql.Rows that collect needs.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collect scans every row of rs into fresh rows of type t.
func collect(t models.EntityType, rs rowScanner) ([]models.Row, error) {
	var out []models.Row
	for rs.Next() {
		row := models.NewRow(t)
		if err := rs.Scan(row.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t, err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t, err)
	}
	return out, nil
}

// classify turns a driver error for the row at index into a pipeline error.
func classify(t models.EntityType, index int, err error) error {
	err = dberrors.Classify(StoreName, string(t), err)
	var se *apperrors.SyncError
	if errors.As(err, &se) && se.Index < 0 {
		se.AtIndex(index)
	}
	return err
}

// pendingChunks splits the positions of rows that have no identifier yet into chunks of at
// most size. Rows committed by an earlier call keep their identifiers and are skipped.
func pendingChunks(rows []models.Row, size int) [][]int {
	var pending []int
	for i, r := range rows {
		if r.GetID() == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(pending)
	}
	var out [][]int
	for start := 0; start < len(pending); start += size {
		out = append(out, pending[start:min(start+size, len(pending))])
	}
	return out
}

func checkBatch(rows []models.Row) (models.EntityType, error) {
	if len(rows) == 0 {
		return "", nil
	}
	t := rows[0].EntityType()
	for i, r := range rows {
		if r.EntityType() != t {
			return t, fmt.Errorf("mixed batch: row %d is %s, batch is %s", i, r.EntityType(), t)
		}
	}
	return t, nil
}

func loadAll(ctx context.Context, load func(ctx context.Context, t models.EntityType) ([]models.Row, error)) (*models.Snapshot, error) {
	order, err := models.TopologicalOrder(models.Dependencies)
	if err != nil {
		return nil, err
	}
	snap := &models.Snapshot{}
	for _, t := range order {
		rows, err := load(ctx, t)
		if err != nil {
			return nil, dberrors.Classify(StoreName, string(t), err)
		}
		snap.Add(rows...)
	}
	return snap, nil
}
