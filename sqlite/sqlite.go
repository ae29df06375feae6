// Package sqlite implements bpmn.Store on an embedded SQLite database.
//
// New expects an *sql.DB that uses a SQLite driver; Open uses
// "modernc.org/sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/form"
)

// Store is a bpmn.Store backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ bpmn.Store = (*Store)(nil)

// Open opens the database at path (":memory:" for a private in-memory
// one) with a single connection, so writers are serialized.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("bpmn: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// New wraps db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bpmn_documents (
	key        TEXT NOT NULL,
	version    INTEGER NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'bpmn',
	name       TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (key, version)
);

CREATE TABLE IF NOT EXISTS bpmn_forms (
	key  TEXT PRIMARY KEY,
	data BLOB NOT NULL
);
`

// CreateSchema creates the bpmn_documents and bpmn_forms tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropSchema drops both tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS bpmn_forms; DROP TABLE IF EXISTS bpmn_documents;`)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ── Documents ───────────────────────────────────────────────

func (s *Store) SaveDocument(ctx context.Context, rec *bpmn.Record) (*bpmn.Record, error) {
	if rec.Key == "" {
		return nil, bpmn.NewError(bpmn.ErrInvalidAttribute, "document key must not be empty", nil, nil)
	}
	saved := *rec
	if saved.Kind == "" {
		saved.Kind = bpmn.KindBPMN
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bpmn: begin tx: %w", err)
	}
	defer tx.Rollback()

	var latest int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM bpmn_documents WHERE key = ?`, rec.Key,
	).Scan(&latest); err != nil {
		return nil, fmt.Errorf("bpmn: latest version: %w", err)
	}
	if latest != rec.Version {
		return nil, bpmn.VersionConflict(rec.Key, rec.Version, latest)
	}

	saved.Version = latest + 1
	saved.CreatedAt = s.now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bpmn_documents (key, version, kind, name, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		saved.Key, saved.Version, string(saved.Kind), saved.Name, saved.Content, saved.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, bpmn.VersionConflict(rec.Key, rec.Version, saved.Version)
		}
		return nil, fmt.Errorf("bpmn: insert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("bpmn: commit: %w", err)
	}
	return &saved, nil
}

const selectDocument = `SELECT key, version, kind, name, content, created_at FROM bpmn_documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*bpmn.Record, error) {
	var (
		rec     bpmn.Record
		kind    string
		created int64
	)
	if err := row.Scan(&rec.Key, &rec.Version, &kind, &rec.Name, &rec.Content, &created); err != nil {
		return nil, err
	}
	rec.Kind = bpmn.Kind(kind)
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}

func (s *Store) LatestDocument(ctx context.Context, key string) (*bpmn.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		selectDocument+` WHERE key = ? ORDER BY version DESC LIMIT 1`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bpmn.NotFound("document", key)
		}
		return nil, fmt.Errorf("bpmn: get document: %w", err)
	}
	return rec, nil
}

func (s *Store) DocumentVersion(ctx context.Context, key string, version int) (*bpmn.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		selectDocument+` WHERE key = ? AND version = ?`, key, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bpmn.NotFound("document", key+"@"+strconv.Itoa(version))
		}
		return nil, fmt.Errorf("bpmn: get document version: %w", err)
	}
	return rec, nil
}

func (s *Store) ListVersions(ctx context.Context, key string) ([]bpmn.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectDocument+` WHERE key = ? ORDER BY version`, key)
	if err != nil {
		return nil, fmt.Errorf("bpmn: query versions: %w", err)
	}
	defer rows.Close()

	var out []bpmn.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("bpmn: scan document: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bpmn: rows documents: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bpmn_documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("bpmn: delete document: %w", err)
	}
	return affected(res, "document", key)
}

func affected(res sql.Result, what, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return bpmn.NotFound(what, key)
	}
	return nil
}

// ── Forms ───────────────────────────────────────────────────

func (s *Store) SaveForm(ctx context.Context, key string, f *form.Form) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bpmn_forms (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("bpmn: save form: %w", err)
	}
	return nil
}

func (s *Store) GetForm(ctx context.Context, key string) (*form.Form, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM bpmn_forms WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bpmn.NotFound("form", key)
		}
		return nil, fmt.Errorf("bpmn: get form: %w", err)
	}
	return form.Parse(data)
}

func (s *Store) DeleteForm(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bpmn_forms WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("bpmn: delete form: %w", err)
	}
	return affected(res, "form", key)
}
