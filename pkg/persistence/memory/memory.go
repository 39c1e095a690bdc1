// Package memory provides an in-process document store, used by tests and
// one-shot CLI runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
)

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*persistence.Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: map[string]*persistence.Document{}}
}

func (s *Store) Get(_ context.Context, key string) (*persistence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, persistence.NewDocumentError("Get", key, persistence.ErrNotFound)
	}

	return doc.Clone(), nil
}

func (s *Store) GetMany(ctx context.Context, keys []string) ([]*persistence.Document, error) {
	docs := make([]*persistence.Document, 0, len(keys))

	for _, key := range keys {
		doc, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Store) Put(ctx context.Context, doc *persistence.Document) (*persistence.Document, error) {
	saved, err := s.PutMany(ctx, []*persistence.Document{doc})
	if err != nil {
		return nil, err
	}

	return saved[0], nil
}

func (s *Store) PutMany(_ context.Context, docs []*persistence.Document) ([]*persistence.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(docs))

	for _, doc := range docs {
		if _, dup := seen[doc.Key]; dup {
			return nil, persistence.NewDocumentError("PutMany", doc.Key, persistence.ErrConflict)
		}

		seen[doc.Key] = struct{}{}

		if err := persistence.CheckRevision(s.docs[doc.Key], doc); err != nil {
			return nil, err
		}
	}

	saved := make([]*persistence.Document, 0, len(docs))

	for _, doc := range docs {
		stored := doc.Clone()
		stored.Rev++
		s.docs[doc.Key] = stored
		saved = append(saved, stored.Clone())
	}

	return saved, nil
}

func (s *Store) ListByScope(_ context.Context, scope string, types ...string) ([]*persistence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*persistence.Document

	for _, doc := range s.docs {
		if doc.Scope != scope {
			continue
		}

		if len(types) > 0 && !slices.Contains(types, doc.Type) {
			continue
		}

		docs = append(docs, doc.Clone())
	}

	slices.SortFunc(docs, func(a, b *persistence.Document) int {
		return strings.Compare(a.Key, b.Key)
	})

	return docs, nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
