package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meikuraledutech/bpmn"
)

// SaveDocument stores rec as the next version of its key. rec.Version
// must be the latest stored version, or 0 for a new key.
func (s *PGStore) SaveDocument(ctx context.Context, rec *bpmn.Record) (*bpmn.Record, error) {
	if rec.Key == "" {
		return nil, bpmn.NewError(bpmn.ErrInvalidAttribute, "document key must not be empty", nil, nil)
	}
	saved := *rec
	if saved.Kind == "" {
		saved.Kind = bpmn.KindBPMN
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bpmn: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var latest int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM bpmn_documents WHERE key = $1`, rec.Key,
	).Scan(&latest); err != nil {
		return nil, fmt.Errorf("bpmn: latest version: %w", err)
	}
	if latest != rec.Version {
		return nil, bpmn.VersionConflict(rec.Key, rec.Version, latest)
	}

	saved.Version = latest + 1
	err = tx.QueryRow(ctx,
		`INSERT INTO bpmn_documents (key, version, kind, name, content)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		saved.Key, saved.Version, string(saved.Kind), saved.Name, saved.Content,
	).Scan(&saved.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, bpmn.VersionConflict(rec.Key, rec.Version, saved.Version)
		}
		return nil, fmt.Errorf("bpmn: insert document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, bpmn.VersionConflict(rec.Key, rec.Version, saved.Version)
		}
		return nil, fmt.Errorf("bpmn: commit: %w", err)
	}
	return &saved, nil
}

const selectDocument = `SELECT key, version, kind, name, content, created_at FROM bpmn_documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*bpmn.Record, error) {
	var rec bpmn.Record
	var kind string
	if err := row.Scan(&rec.Key, &rec.Version, &kind, &rec.Name, &rec.Content, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Kind = bpmn.Kind(kind)
	return &rec, nil
}

// LatestDocument returns the highest version stored for key.
func (s *PGStore) LatestDocument(ctx context.Context, key string) (*bpmn.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx,
		selectDocument+` WHERE key = $1 ORDER BY version DESC LIMIT 1`, key))
	if err != nil {
		if isNoRows(err) {
			return nil, bpmn.NotFound("document", key)
		}
		return nil, fmt.Errorf("bpmn: get document: %w", err)
	}
	return rec, nil
}

// DocumentVersion returns one stored version of key.
func (s *PGStore) DocumentVersion(ctx context.Context, key string, version int) (*bpmn.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx,
		selectDocument+` WHERE key = $1 AND version = $2`, key, version))
	if err != nil {
		if isNoRows(err) {
			return nil, bpmn.NotFound("document", key+"@"+strconv.Itoa(version))
		}
		return nil, fmt.Errorf("bpmn: get document version: %w", err)
	}
	return rec, nil
}

// ListVersions returns every version of key, oldest first.
func (s *PGStore) ListVersions(ctx context.Context, key string) ([]bpmn.Record, error) {
	rows, err := s.db.Query(ctx, selectDocument+` WHERE key = $1 ORDER BY version`, key)
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

// DeleteDocument removes every version of key.
func (s *PGStore) DeleteDocument(ctx context.Context, key string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM bpmn_documents WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("bpmn: delete document: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return bpmn.NotFound("document", key)
	}
	return nil
}
