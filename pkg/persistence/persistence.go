// Package persistence provides the document store abstraction the editorial
// workflow reads from and commits instantiated stages to.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is a stored JSON-LD document.
//
// Rev implements optimistic concurrency: a Put with Rev 0 creates the document
// and fails with ErrConflict if the key is taken, a Put with Rev > 0 replaces
// the document only if its stored revision equals Rev.
type Document struct {
	Key   string          `json:"key"`
	ID    string          `json:"@id"`
	Type  string          `json:"@type"`
	Scope string          `json:"scope,omitempty"`
	Rev   int64           `json:"rev"`
	Body  json.RawMessage `json:"body"`
}

// Clone returns a copy of the document that shares nothing with d.
func (d *Document) Clone() *Document {
	clone := *d
	clone.Body = append(json.RawMessage(nil), d.Body...)

	return &clone
}

// Store is an optimistic-concurrency document store keyed by storage keys.
type Store interface {
	// Get returns the document stored at key or ErrNotFound.
	Get(ctx context.Context, key string) (*Document, error)
	// GetMany returns the documents stored at keys, in order. Any missing key
	// fails the whole call with ErrNotFound.
	GetMany(ctx context.Context, keys []string) ([]*Document, error)
	// Put writes doc and returns it with its new revision.
	Put(ctx context.Context, doc *Document) (*Document, error)
	// PutMany writes all docs or none of them.
	PutMany(ctx context.Context, docs []*Document) ([]*Document, error)
	// ListByScope returns the documents of scope, optionally restricted to types,
	// ordered by key.
	ListByScope(ctx context.Context, scope string, types ...string) ([]*Document, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// CheckRevision decides whether incoming may replace stored, which is nil
// when nothing is stored at the key. Backends call it under their write lock
// or transaction.
func CheckRevision(stored, incoming *Document) error {
	switch {
	case incoming.Key == "":
		return NewDocumentError("Put", incoming.Key, fmt.Errorf("%w: missing key", ErrInvalidDocument))
	case stored == nil && incoming.Rev != 0:
		return NewDocumentError("Put", incoming.Key, ErrNotFound)
	case stored != nil && incoming.Rev == 0:
		return NewDocumentError("Put", incoming.Key, fmt.Errorf("%w: document exists", ErrConflict))
	case stored != nil && stored.Rev != incoming.Rev:
		return NewDocumentError("Put", incoming.Key, fmt.Errorf("%w: revision %d, stored %d", ErrConflict, incoming.Rev, stored.Rev))
	}

	return nil
}

const maxUpdateAttempts = 5

// Update applies mutate to the document stored at key and writes it back,
// retrying from a fresh read when a concurrent writer wins.
func Update(ctx context.Context, store Store, key string, mutate func(*Document) error) (*Document, error) {
	var lastErr error

	for range maxUpdateAttempts {
		doc, err := store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if err := mutate(doc); err != nil {
			return nil, err
		}

		saved, err := store.Put(ctx, doc)
		if err == nil {
			return saved, nil
		}

		if !errors.Is(err, ErrConflict) {
			return nil, err
		}

		lastErr = err
	}

	return nil, NewDocumentError("Update", key, lastErr)
}
