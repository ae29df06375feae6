package bpmn

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/meikuraledutech/bpmn/form"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]Record
	forms map[string][]byte
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  map[string][]Record{},
		forms: map[string][]byte{},
		now:   time.Now,
	}
}

func (s *MemoryStore) CreateSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = map[string][]Record{}
	s.forms = map[string][]byte{}
	return nil
}

func (s *MemoryStore) SaveDocument(ctx context.Context, rec *Record) (*Record, error) {
	if rec.Key == "" {
		return nil, NewError(ErrInvalidAttribute, "document key must not be empty", nil, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.docs[rec.Key]
	if rec.Version != len(versions) {
		return nil, VersionConflict(rec.Key, rec.Version, len(versions))
	}
	saved := *rec
	saved.Version = len(versions) + 1
	if saved.Kind == "" {
		saved.Kind = KindBPMN
	}
	saved.CreatedAt = s.now().UTC()
	s.docs[rec.Key] = append(versions, saved)
	return &saved, nil
}

func (s *MemoryStore) LatestDocument(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.docs[key]
	if len(versions) == 0 {
		return nil, NotFound("document", key)
	}
	rec := versions[len(versions)-1]
	return &rec, nil
}

func (s *MemoryStore) DocumentVersion(ctx context.Context, key string, version int) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.docs[key]
	if version < 1 || version > len(versions) {
		return nil, NotFound("document", key+"@"+strconv.Itoa(version))
	}
	rec := versions[version-1]
	return &rec, nil
}

func (s *MemoryStore) ListVersions(ctx context.Context, key string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.docs[key]), nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; !ok {
		return NotFound("document", key)
	}
	delete(s.docs, key)
	return nil
}

func (s *MemoryStore) SaveForm(ctx context.Context, key string, f *form.Form) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[key] = data
	return nil
}

func (s *MemoryStore) GetForm(ctx context.Context, key string) (*form.Form, error) {
	s.mu.RLock()
	data, ok := s.forms[key]
	s.mu.RUnlock()
	if !ok {
		return nil, NotFound("form", key)
	}
	return form.Parse(data)
}

func (s *MemoryStore) DeleteForm(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[key]; !ok {
		return NotFound("form", key)
	}
	delete(s.forms, key)
	return nil
}
