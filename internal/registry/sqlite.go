package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/pkg/media"
	_ "modernc.org/sqlite"
)

// DBFileName is the registry database inside the config dir.
const DBFileName = "jobs.db"

//go:embed schema.sql
var schema string

const recordColumns = `id, backend, media_kind, media_id, device, deadline, spec_created_at, status, created_at, updated_at`

// SQLiteStore persists records in a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; this also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec job.Record) error {
	if _, err := s.Get(ctx, rec.ID); err == nil {
		return errDuplicate(rec.ID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(`+recordColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Backend, string(rec.Spec.Media.Kind), rec.Spec.Media.ID, rec.Spec.Device,
		fmtTime(rec.Spec.Deadline), fmtTime(rec.Spec.CreatedAt), string(rec.Status),
		fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt),
	)
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, rec job.Record) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(rec.Status), fmtTime(rec.UpdatedAt), rec.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, rec.ID)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (job.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Record{}, errNotFound(id)
	}
	return rec, err
}

func (s *SQLiteStore) All(ctx context.Context) ([]job.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM jobs ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []job.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (job.Record, error) {
	var (
		rec                                         job.Record
		kind, status                                string
		deadline, specCreated, created, updatedTime string
	)
	err := sc.Scan(&rec.ID, &rec.Backend, &kind, &rec.Spec.Media.ID, &rec.Spec.Device,
		&deadline, &specCreated, &status, &created, &updatedTime)
	if err != nil {
		return job.Record{}, err
	}
	rec.Spec.Media.Kind = media.Kind(kind)
	rec.Status = job.Status(status)
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&rec.Spec.Deadline, deadline},
		{&rec.Spec.CreatedAt, specCreated},
		{&rec.CreatedAt, created},
		{&rec.UpdatedAt, updatedTime},
	} {
		t, err := time.Parse(time.RFC3339Nano, f.src)
		if err != nil {
			return job.Record{}, fmt.Errorf("job %s: bad timestamp %q: %w", rec.ID, f.src, err)
		}
		*f.dst = t.Local()
	}
	return rec, nil
}

func fmtTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound(id)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
