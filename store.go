package bpmn

import (
	"context"
	"strconv"
	"time"

	"github.com/meikuraledutech/bpmn/form"
)

// Kind tells which codec a stored document belongs to.
type Kind string

const (
	KindBPMN Kind = "bpmn"
	KindDMN  Kind = "dmn"
)

// Record is one stored version of a serialized document.
type Record struct {
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FormStore persists the forms generated for user tasks, keyed by form key.
type FormStore interface {
	SaveForm(ctx context.Context, key string, f *form.Form) error
	GetForm(ctx context.Context, key string) (*form.Form, error)
	DeleteForm(ctx context.Context, key string) error
}

// Store defines the contract for persisting documents and forms.
//
// Documents are versioned optimistically: SaveDocument accepts a record
// only when its Version equals the latest stored version (0 when the key
// is new) and stores it as the next version. Any other Version fails with
// VERSION_CONFLICT.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Documents
	SaveDocument(ctx context.Context, rec *Record) (*Record, error)
	LatestDocument(ctx context.Context, key string) (*Record, error)
	DocumentVersion(ctx context.Context, key string, version int) (*Record, error)
	ListVersions(ctx context.Context, key string) ([]Record, error)
	DeleteDocument(ctx context.Context, key string) error

	// Forms
	FormStore
}

// VersionConflict builds the error returned when a save is based on a
// stale version.
func VersionConflict(key string, expected, latest int) error {
	return NewError(ErrVersionConflict,
		"document "+quote(key)+" is at version "+strconv.Itoa(latest)+", save was based on "+strconv.Itoa(expected), nil,
		map[string]any{"key": key, "expected": expected, "latest": latest})
}

// NotFound builds the error returned for a missing document or form.
func NotFound(what, key string) error {
	return NewError(ErrNotFound, what+" "+quote(key)+" not found", nil, map[string]any{"key": key})
}
