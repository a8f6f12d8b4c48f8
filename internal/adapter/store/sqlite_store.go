package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"uigen/internal/domain/entity"
	"uigen/internal/metrics"
)

// SQLiteStore keeps generations in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and creates/migrates) the database at the given path.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: journal_mode is %q", mode)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN applies the pragmas on every pooled connection. Writers wait on
// each other through busy_timeout and BEGIN IMMEDIATE instead of failing with SQLITE_BUSY.
func sqliteDSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	return "file:" + dbPath + "?" + q.Encode()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	// v1: generations table
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS generations (
  id            TEXT PRIMARY KEY,
  prompt        TEXT NOT NULL,
  design_spec   TEXT NOT NULL,
  code          TEXT NOT NULL,
  output_format TEXT NOT NULL,
  framework     TEXT NOT NULL,
  created_at    INTEGER NOT NULL
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at DESC);")
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateGeneration(ctx context.Context, g entity.NewGeneration) (*entity.Generation, error) {
	metrics.IncStoreOp("sqlite", "insert")

	rec := &entity.Generation{
		ID:           uuid.NewString(),
		Prompt:       g.Prompt,
		DesignSpec:   g.DesignSpec,
		Code:         g.Code,
		OutputFormat: g.OutputFormat,
		Framework:    g.Framework,
		CreatedAt:    s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO generations (id, prompt, design_spec, code, output_format, framework, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Prompt, rec.DesignSpec, rec.Code, rec.OutputFormat, rec.Framework, rec.CreatedAt.UnixNano())
	if err != nil {
		metrics.IncError("sqlite_store", "insert_error")
		return nil, entity.NewPersistenceError("insert", err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetRecentGenerations(ctx context.Context, limit int) ([]entity.Generation, error) {
	metrics.IncStoreOp("sqlite", "list")

	if limit <= 0 {
		return []entity.Generation{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, prompt, design_spec, code, output_format, framework, created_at
FROM generations
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		metrics.IncError("sqlite_store", "list_error")
		return nil, entity.NewPersistenceError("list", err)
	}
	defer rows.Close()

	out := make([]entity.Generation, 0, limit)
	for rows.Next() {
		var g entity.Generation
		var created int64
		if err := rows.Scan(&g.ID, &g.Prompt, &g.DesignSpec, &g.Code, &g.OutputFormat, &g.Framework, &created); err != nil {
			metrics.IncError("sqlite_store", "list_scan_error")
			return nil, entity.NewPersistenceError("list", err)
		}
		g.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		metrics.IncError("sqlite_store", "list_rows_error")
		return nil, entity.NewPersistenceError("list", err)
	}
	return out, nil
}
