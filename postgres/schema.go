package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bpmn_documents (
    key        TEXT NOT NULL,
    version    INTEGER NOT NULL,
    kind       TEXT NOT NULL DEFAULT 'bpmn',
    name       TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (key, version)
);

CREATE TABLE IF NOT EXISTS bpmn_forms (
    key        TEXT PRIMARY KEY,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bpmn_documents_kind ON bpmn_documents(kind);
`

// CreateSchema creates the bpmn_documents and bpmn_forms tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the bpmn_documents and bpmn_forms tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS bpmn_forms, bpmn_documents CASCADE;`)
	return err
}
