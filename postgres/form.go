package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/form"
)

// SaveForm inserts or replaces the form stored under key.
func (s *PGStore) SaveForm(ctx context.Context, key string, f *form.Form) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO bpmn_forms (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("bpmn: save form: %w", err)
	}
	return nil
}

// GetForm fetches the form stored under key.
func (s *PGStore) GetForm(ctx context.Context, key string) (*form.Form, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM bpmn_forms WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if isNoRows(err) {
			return nil, bpmn.NotFound("form", key)
		}
		return nil, fmt.Errorf("bpmn: get form: %w", err)
	}
	return form.Parse(data)
}

// DeleteForm removes the form stored under key.
func (s *PGStore) DeleteForm(ctx context.Context, key string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM bpmn_forms WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("bpmn: delete form: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return bpmn.NotFound("form", key)
	}
	return nil
}
