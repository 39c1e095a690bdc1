package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/science-periodicals/librarian-sub000/pkg/channels/gochannel"
	"github.com/science-periodicals/librarian-sub000/pkg/eventbus"
	"github.com/science-periodicals/librarian-sub000/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub := gochannel.CreateChannel(watermill.NopLogger{}, false)
	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.StageInstantiated, 1)

	require.NoError(t, bus.Handle(events.StageInstantiatedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.StageInstantiated)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	// unhandled event types are acked and dropped
	require.NoError(t, bus.Publish(t.Context(), "graph:paper", events.GraphRejected{
		BaseEvent: events.NewBaseEvent(events.GraphRejectedEvent, "graph:paper"),
	}))

	require.NoError(t, bus.Publish(t.Context(), "graph:paper", events.StageInstantiated{
		BaseEvent:  events.NewBaseEvent(events.StageInstantiatedEvent, "graph:paper"),
		StageID:    "action:stage",
		TemplateID: "workflow:submission",
		Identifier: "0",
		ActionIDs:  []string{"action:a", "action:b"},
	}))

	select {
	case event := <-received:
		assert.Equal(t, "graph:paper", event.GraphID)
		assert.Equal(t, events.StageInstantiatedEvent, event.Type)
		assert.Equal(t, "action:stage", event.StageID)
		assert.Equal(t, []string{"action:a", "action:b"}, event.ActionIDs)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, events.StageInstantiatedEvent, events.StageInstantiated{}.GetType())
	assert.Equal(t, events.AssessmentCompletedEvent, events.AssessmentCompleted{}.GetType())
	assert.Equal(t, events.GraphRejectedEvent, events.GraphRejected{}.GetType())
	assert.Equal(t, events.ReleaseCreatedEvent, events.ReleaseCreated{}.GetType())

	base := events.NewBaseEvent(events.AssessmentCompletedEvent, "graph:paper")
	assert.NotEmpty(t, base.ID)
	assert.Equal(t, "graph:paper", base.GraphID)
	assert.False(t, base.Timestamp.IsZero())
}
