package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

func encode(key, id, typ, scope string, rev int64, v any) (*Document, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, NewDocumentError("Encode", key, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}

	return &Document{Key: key, ID: id, Type: typ, Scope: scope, Rev: rev, Body: body}, nil
}

func decode[T any](doc *Document) (*T, error) {
	var v T
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return nil, NewDocumentError("Decode", doc.Key, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}

	return &v, nil
}

// ActionKey returns the storage key of the action id owned by scope.
func ActionKey(id, scope string) (string, error) {
	created, err := identifier.Create(identifier.KindAction, id, scope)
	if err != nil {
		return "", err
	}

	return created.StorageKey, nil
}

// EncodeAction wraps a flattened action into a new document owned by scope.
func EncodeAction(a *models.Action, scope string) (*Document, error) {
	key, err := ActionKey(a.ID, scope)
	if err != nil {
		return nil, NewDocumentError("Encode", a.ID, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}

	return encode(key, a.ID, string(a.Type), scope, 0, a)
}

// DecodeAction reads the action held by doc.
func DecodeAction(doc *Document) (*models.Action, error) {
	return decode[models.Action](doc)
}

// EncodeGraph wraps a Graph into a new document.
func EncodeGraph(g *models.Graph) (*Document, error) {
	return encode(g.ID, g.ID, models.GraphType, g.ID, 0, g)
}

// DecodeGraph reads the Graph held by doc.
func DecodeGraph(doc *Document) (*models.Graph, error) {
	return decode[models.Graph](doc)
}

// Actions reads and writes action documents.
type Actions struct {
	store Store
}

// NewActions creates an action repository over store.
func NewActions(store Store) *Actions {
	return &Actions{store: store}
}

// Get returns the action id owned by scope and its revision.
func (r *Actions) Get(ctx context.Context, scope, id string) (*models.Action, int64, error) {
	key, err := ActionKey(id, scope)
	if err != nil {
		return nil, 0, err
	}

	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	action, err := DecodeAction(doc)
	if err != nil {
		return nil, 0, err
	}

	return action, doc.Rev, nil
}

// Update applies mutate to the stored action and writes it back.
func (r *Actions) Update(ctx context.Context, scope, id string, mutate func(*models.Action) error) (*models.Action, error) {
	key, err := ActionKey(id, scope)
	if err != nil {
		return nil, err
	}

	var updated *models.Action

	_, err = Update(ctx, r.store, key, func(doc *Document) error {
		action, err := DecodeAction(doc)
		if err != nil {
			return err
		}

		if err := mutate(action); err != nil {
			return err
		}

		body, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		doc.Body = body
		doc.Type = string(action.Type)
		updated = action

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ActionsByType returns the actions of scope with one of the given types.
func (r *Actions) ActionsByType(ctx context.Context, scope string, types ...models.ActionType) ([]*models.Action, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	docs, err := r.store.ListByScope(ctx, scope, names...)
	if err != nil {
		return nil, err
	}

	actions := make([]*models.Action, 0, len(docs))

	for _, doc := range docs {
		action, err := DecodeAction(doc)
		if err != nil {
			return nil, err
		}

		actions = append(actions, action)
	}

	return actions, nil
}

// Releases reads and writes the versioned snapshots of a Graph and its
// "latest" pointer.
type Releases struct {
	store Store
}

// NewReleases creates a release repository over store.
func NewReleases(store Store) *Releases {
	return &Releases{store: store}
}

// Latest returns the most recent release of graphID, or ErrNotFound before
// the first release.
func (r *Releases) Latest(ctx context.Context, graphID string) (*models.Release, error) {
	created, err := identifier.Create(identifier.KindRelease, "0.0.0", graphID, identifier.Latest())
	if err != nil {
		return nil, err
	}

	doc, err := r.store.Get(ctx, created.StorageKey)
	if err != nil {
		return nil, err
	}

	return decode[models.Release](doc)
}

// Documents returns the versioned snapshot of release and the latest pointer
// moved to it, ready to be persisted together. The snapshot must not exist yet.
func (r *Releases) Documents(ctx context.Context, graphID string, release *models.Release) ([]*Document, error) {
	versioned, err := identifier.Create(identifier.KindRelease, release.Version, graphID)
	if err != nil {
		return nil, err
	}

	latest, err := identifier.Create(identifier.KindRelease, release.Version, graphID, identifier.Latest())
	if err != nil {
		return nil, err
	}

	snapshot := *release
	snapshot.ID = versioned.ID

	doc, err := encode(versioned.StorageKey, versioned.ID, models.GraphType, graphID, 0, &snapshot)
	if err != nil {
		return nil, err
	}

	pointer, err := encode(latest.StorageKey, versioned.ID, models.GraphType, graphID, 0, &snapshot)
	if err != nil {
		return nil, err
	}

	current, err := r.store.Get(ctx, latest.StorageKey)

	switch {
	case err == nil:
		pointer.Rev = current.Rev
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	return []*Document{doc, pointer}, nil
}

// Save stores release under its version and moves the latest pointer to it.
func (r *Releases) Save(ctx context.Context, graphID string, release *models.Release) error {
	docs, err := r.Documents(ctx, graphID, release)
	if err != nil {
		return err
	}

	_, err = r.store.PutMany(ctx, docs)

	return err
}
