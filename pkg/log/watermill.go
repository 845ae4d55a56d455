package log

import (
	"github.com/ThreeDotsLabs/watermill"

	wmAdapter "github.com/bft-labs/topicflux/internal/adapters/watermill"
)

// NewWatermill adapts l for watermill components, such as the subscriber
// handed to topicflux.WithSubscriber. Trace messages are logged at debug
// level.
func NewWatermill(l Logger) watermill.LoggerAdapter {
	return wmAdapter.NewLoggerAdapter(l)
}
