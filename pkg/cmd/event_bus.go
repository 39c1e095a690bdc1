package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/science-periodicals/librarian-sub000/pkg/channels/gochannel"
	"github.com/science-periodicals/librarian-sub000/pkg/channels/kafka"
	"github.com/science-periodicals/librarian-sub000/pkg/eventbus"
)

const serviceName = "librarian"

// NewEventBus creates the event bus of provider. "gochannel" keeps events in
// process, "kafka" publishes them to brokers.
func NewEventBus(provider string, brokers []string, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub := gochannel.CreateChannel(adapter, false)

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, brokers, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
