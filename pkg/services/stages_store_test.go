package services

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	lockmemory "github.com/science-periodicals/librarian-sub000/pkg/lock/memory"
	"github.com/science-periodicals/librarian-sub000/pkg/mocks"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStoreUnavailable = errors.New("store unavailable")

func newMockedStages(store *mocks.MockStore) (*Stages, *mocks.MockEventBus) {
	publisher := &mocks.MockEventBus{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	factory := identifier.NewFactory(identifier.WithRandom(testutil.SeededReader(7)))

	stages := NewStages(store, lockmemory.NewLocker(), publisher, slog.New(slog.DiscardHandler),
		WithStagesIdentifierFactory(factory),
	)

	return stages, publisher
}

// mirror serves the documents of actions from the fixture store and reports
// every other key as missing.
func mirror(t *testing.T, f *fixture, store *mocks.MockStore, actions []*models.Action) {
	t.Helper()

	for _, a := range actions {
		key, err := persistence.ActionKey(a.ID, testutil.GraphID)
		require.NoError(t, err)

		doc, err := f.store.Get(t.Context(), key)
		require.NoError(t, err)

		store.On("Get", mock.Anything, key).Return(doc, nil)
	}

	store.On("Get", mock.Anything, mock.Anything).Return(nil, persistence.ErrNotFound)
}

func TestStages_StartGraph_StoreFailure(t *testing.T) {
	start := testutil.StartTime
	req := StartGraphRequest{
		GraphID:       testutil.GraphID,
		Specification: testutil.TwoStageSpecification(),
		Agent:         &models.Role{RoleName: "author"},
		StartTime:     &start,
	}

	tests := []struct {
		name  string
		setup func(store *mocks.MockStore)
	}{
		{
			name: "listing instruments fails",
			setup: func(store *mocks.MockStore) {
				store.On("ListByScope", mock.Anything, testutil.GraphID, mock.Anything).Return(nil, errStoreUnavailable)
			},
		},
		{
			name: "writing the stage fails",
			setup: func(store *mocks.MockStore) {
				store.On("ListByScope", mock.Anything, testutil.GraphID, mock.Anything).Return([]*persistence.Document{}, nil)
				store.On("PutMany", mock.Anything, mock.Anything).Return(nil, errStoreUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockStore{}
			store.On("Get", mock.Anything, testutil.GraphID).Return(nil, persistence.ErrNotFound)
			tt.setup(store)

			stages, publisher := newMockedStages(store)

			result, err := stages.StartGraph(t.Context(), req)
			require.ErrorIs(t, err, errStoreUnavailable)
			assert.Nil(t, result)
			assert.False(t, IsConflictError(err))

			publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			store.AssertExpectations(t)
		})
	}
}

func TestStages_CompleteAssessment_StoreFailure(t *testing.T) {
	f := newFixture(t)
	first := f.start(t)

	assess := ofType(first.Actions, models.ActionTypeAssess)
	production := productionStub(first.Actions)
	require.NotNil(t, assess)
	require.NotNil(t, production)

	store := &mocks.MockStore{}
	mirror(t, f, store, first.Actions)
	store.On("ListByScope", mock.Anything, testutil.GraphID, mock.Anything).Return([]*persistence.Document{}, nil)
	store.On("PutMany", mock.Anything, mock.Anything).Return(nil, errStoreUnavailable)

	stages, publisher := newMockedStages(store)

	result, err := stages.CompleteAssessment(t.Context(), CompleteAssessmentRequest{
		GraphID:        testutil.GraphID,
		AssessActionID: assess.ID,
		ResultID:       production.ID,
		Specification:  f.spec,
	})
	require.ErrorIs(t, err, errStoreUnavailable)
	assert.Nil(t, result)

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNumberOfCalls(t, "PutMany", 1)

	// the stored stub is still waiting for a decision
	stub, _ := f.stored(t, production.ID)
	assert.Equal(t, models.ActionStatusPotential, stub.ActionStatus)
}
