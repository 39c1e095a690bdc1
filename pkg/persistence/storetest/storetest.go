// Package storetest holds the conformance suite every persistence.Store
// backend runs.
package storetest

import (
	"encoding/json"
	"testing"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphID = "graph:paper"

func newDoc(key, typ, scope string) *persistence.Document {
	return &persistence.Document{
		Key:   key,
		ID:    key,
		Type:  typ,
		Scope: scope,
		Body:  json.RawMessage(`{"@id":"` + key + `","@type":"` + typ + `"}`),
	}
}

// TestStore runs the conformance suite against stores built by newStore.
// Each subtest gets a fresh, empty store.
func TestStore(t *testing.T, newStore func(t *testing.T) persistence.Store) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(t.Context(), "graph:missing")
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("create then conflict", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		saved, err := store.Put(ctx, newDoc(graphID, models.GraphType, graphID))
		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.Rev)

		got, err := store.Get(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, graphID, got.ID)
		assert.Equal(t, models.GraphType, got.Type)
		assert.JSONEq(t, string(saved.Body), string(got.Body))

		_, err = store.Put(ctx, newDoc(graphID, models.GraphType, graphID))
		require.ErrorIs(t, err, persistence.ErrConflict)
	})

	t.Run("optimistic update", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		saved, err := store.Put(ctx, newDoc(graphID, models.GraphType, graphID))
		require.NoError(t, err)

		saved.Body = json.RawMessage(`{"@id":"graph:paper","version":"0.0.0-0"}`)
		updated, err := store.Put(ctx, saved)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Rev)

		_, err = store.Put(ctx, saved)
		require.ErrorIs(t, err, persistence.ErrConflict, "stale revision")

		stale := newDoc("graph:other", models.GraphType, "graph:other")
		stale.Rev = 3
		_, err = store.Put(ctx, stale)
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("get many", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		_, err := store.PutMany(ctx, []*persistence.Document{
			newDoc("graph:a", models.GraphType, "graph:a"),
			newDoc("graph:b", models.GraphType, "graph:b"),
		})
		require.NoError(t, err)

		docs, err := store.GetMany(ctx, []string{"graph:b", "graph:a"})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "graph:b", docs[0].Key)
		assert.Equal(t, "graph:a", docs[1].Key)

		_, err = store.GetMany(ctx, []string{"graph:a", "graph:c"})
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("put many is all or nothing", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		_, err := store.Put(ctx, newDoc("graph:paper::action::action:2", "ReviewAction", graphID))
		require.NoError(t, err)

		_, err = store.PutMany(ctx, []*persistence.Document{
			newDoc("graph:paper::action::action:1", "AssessAction", graphID),
			newDoc("graph:paper::action::action:2", "ReviewAction", graphID),
		})
		require.ErrorIs(t, err, persistence.ErrConflict)

		_, err = store.Get(ctx, "graph:paper::action::action:1")
		require.ErrorIs(t, err, persistence.ErrNotFound, "first document must not be committed")
	})

	t.Run("list by scope", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		_, err := store.PutMany(ctx, []*persistence.Document{
			newDoc(graphID, models.GraphType, graphID),
			newDoc("graph:paper::action::action:b", "ReviewAction", graphID),
			newDoc("graph:paper::action::action:a", "AssessAction", graphID),
			newDoc("graph:paperback::action::action:c", "ReviewAction", "graph:paperback"),
		})
		require.NoError(t, err)

		all, err := store.ListByScope(ctx, graphID)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, graphID, all[0].Key)
		assert.Equal(t, "graph:paper::action::action:a", all[1].Key)

		reviews, err := store.ListByScope(ctx, graphID, "ReviewAction", "PayAction")
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, "graph:paper::action::action:b", reviews[0].Key)

		none, err := store.ListByScope(ctx, "graph:none")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update helper", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		_, err := store.Put(ctx, newDoc(graphID, models.GraphType, graphID))
		require.NoError(t, err)

		updated, err := persistence.Update(ctx, store, graphID, func(doc *persistence.Document) error {
			doc.Body = json.RawMessage(`{"@id":"graph:paper","version":"1.0.0"}`)

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Rev)

		_, err = persistence.Update(ctx, store, "graph:missing", func(*persistence.Document) error { return nil })
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("action repository", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()
		actions := persistence.NewActions(store)

		review := &models.Action{ID: "action:review", Type: models.ActionTypeReview, ActionStatus: models.ActionStatusActive}
		pay := &models.Action{ID: "action:pay", Type: models.ActionTypePay, ActionStatus: models.ActionStatusActive}

		var docs []*persistence.Document
		for _, a := range []*models.Action{review, pay} {
			doc, err := persistence.EncodeAction(a, graphID)
			require.NoError(t, err)
			docs = append(docs, doc)
		}

		_, err := store.PutMany(ctx, docs)
		require.NoError(t, err)

		got, rev, err := actions.Get(ctx, graphID, "action:review")
		require.NoError(t, err)
		assert.Equal(t, int64(1), rev)
		assert.Equal(t, models.ActionTypeReview, got.Type)

		byType, err := actions.ActionsByType(ctx, graphID, models.ActionTypeReview)
		require.NoError(t, err)
		require.Len(t, byType, 1)
		assert.Equal(t, "action:review", byType[0].ID)

		completed, err := actions.Update(ctx, graphID, "action:review", func(a *models.Action) error {
			a.ActionStatus = models.ActionStatusCompleted

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.ActionStatusCompleted, completed.ActionStatus)

		got, rev, err = actions.Get(ctx, graphID, "action:review")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rev)
		assert.Equal(t, models.ActionStatusCompleted, got.ActionStatus)
	})

	t.Run("release pointer", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()
		releases := persistence.NewReleases(store)

		_, err := releases.Latest(ctx, graphID)
		require.ErrorIs(t, err, persistence.ErrNotFound)

		for _, v := range []string{"0.0.0-0", "0.0.0"} {
			require.NoError(t, releases.Save(ctx, graphID, &models.Release{Type: models.GraphType, Version: v}))
		}

		latest, err := releases.Latest(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0", latest.Version)
		assert.Equal(t, "graph:paper?version=0.0.0", latest.ID)

		err = releases.Save(ctx, graphID, &models.Release{Type: models.GraphType, Version: "0.0.0"})
		require.ErrorIs(t, err, persistence.ErrConflict, "versions are immutable")
	})
}
