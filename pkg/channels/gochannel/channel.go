// Package gochannel provides the in-process event channel used by the CLI and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// CreateChannel returns a GoChannel acting as both publisher and subscriber.
// A synchronous channel blocks Publish until every subscriber has acked,
// which keeps test assertions deterministic.
func CreateChannel(logger watermill.LoggerAdapter, synchronous bool) (*gochannel.GoChannel, *gochannel.GoChannel) {
	config := gochannel.Config{OutputChannelBuffer: 1000}
	if synchronous {
		config = gochannel.Config{
			OutputChannelBuffer:            10,
			BlockPublishUntilSubscriberAck: true,
		}
	}

	pubSub := gochannel.NewGoChannel(config, logger)

	return pubSub, pubSub
}
