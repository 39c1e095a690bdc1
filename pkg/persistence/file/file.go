// Package file provides file-based persistence of workflow documents on top
// of diskv, one JSON file per document.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
)

// Store implements persistence.Store using the file system.
type Store struct {
	root string

	// diskv serializes single writes only; mu makes PutMany atomic.
	mu    sync.Mutex
	diskv *diskv.Diskv
}

// NewStore creates a store rooted at root, which may carry a file:// scheme.
func NewStore(root string) (*Store, error) {
	cleanRoot := filepath.Join(strings.Replace(root, "file://", "", 1), "documents")

	if err := os.MkdirAll(cleanRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	flatTransform := func(string) []string { return []string{} }

	return &Store{
		root: cleanRoot,
		diskv: diskv.New(diskv.Options{
			BasePath:     cleanRoot,
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		}),
	}, nil
}

func (s *Store) read(key string) (*persistence.Document, error) {
	if !s.diskv.Has(key) {
		return nil, nil
	}

	raw, err := s.diskv.Read(key)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", key, err)
	}

	var doc persistence.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, persistence.NewDocumentError("Get", key, fmt.Errorf("%w: %w", persistence.ErrInvalidDocument, err))
	}

	return &doc, nil
}

func (s *Store) Get(_ context.Context, key string) (*persistence.Document, error) {
	doc, err := s.read(key)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, persistence.NewDocumentError("Get", key, persistence.ErrNotFound)
	}

	return doc, nil
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

// PutMany checks every revision before writing anything and restores the
// previous files if a write fails halfway.
func (s *Store) PutMany(_ context.Context, docs []*persistence.Document) ([]*persistence.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string][]byte, len(docs))

	for _, doc := range docs {
		if _, dup := previous[doc.Key]; dup {
			return nil, persistence.NewDocumentError("PutMany", doc.Key, persistence.ErrConflict)
		}

		stored, err := s.read(doc.Key)
		if err != nil {
			return nil, err
		}

		if err := persistence.CheckRevision(stored, doc); err != nil {
			return nil, err
		}

		previous[doc.Key] = nil
		if stored != nil {
			if previous[doc.Key], err = json.Marshal(stored); err != nil {
				return nil, fmt.Errorf("marshal document %s: %w", doc.Key, err)
			}
		}
	}

	saved := make([]*persistence.Document, 0, len(docs))

	for _, doc := range docs {
		next := doc.Clone()
		next.Rev++

		raw, err := json.Marshal(next)
		if err == nil {
			err = s.diskv.Write(next.Key, raw)
		}

		if err != nil {
			s.rollback(saved, previous)

			return nil, persistence.NewDocumentError("PutMany", doc.Key, err)
		}

		saved = append(saved, next)
	}

	return saved, nil
}

func (s *Store) rollback(written []*persistence.Document, previous map[string][]byte) {
	for _, doc := range written {
		if raw := previous[doc.Key]; raw != nil {
			_ = s.diskv.Write(doc.Key, raw)

			continue
		}

		_ = s.diskv.Erase(doc.Key)
	}
}

// ListByScope scans the keys prefixed by scope, which covers the scope
// document and every document it owns.
func (s *Store) ListByScope(_ context.Context, scope string, types ...string) ([]*persistence.Document, error) {
	cancel := make(chan struct{})
	defer close(cancel)

	var docs []*persistence.Document

	for key := range s.diskv.KeysPrefix(scope, cancel) {
		doc, err := s.read(key)
		if err != nil {
			return nil, err
		}

		if doc == nil || doc.Scope != scope {
			continue
		}

		if len(types) > 0 && !slices.Contains(types, doc.Type) {
			continue
		}

		docs = append(docs, doc)
	}

	slices.SortFunc(docs, func(a, b *persistence.Document) int {
		return strings.Compare(a.Key, b.Key)
	})

	return docs, nil
}

// HealthCheck checks if the store is healthy by verifying the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}
