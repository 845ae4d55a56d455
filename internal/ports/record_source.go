package ports

import (
	"context"

	"github.com/bft-labs/topicflux/internal/domain"
)

// RecordSource produces records from a message bus.
// Connection handling, reconnects and subscriptions are the source's concern.
type RecordSource interface {
	// Start connects and begins delivering records on the returned channel.
	// The channel is closed after ctx is done and the subscription has been
	// torn down, or earlier when the source fails permanently.
	// Records must be delivered in the order they were received.
	Start(ctx context.Context) (<-chan domain.Record, error)
}
