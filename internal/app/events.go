package app

import "time"

// EventEmitter receives pipeline events. All methods must be safe for
// concurrent use and must not block.
type EventEmitter interface {
	// OnRecord is called for every consumed record with the number of lines
	// it produced. Zero lines means nothing numeric could be extracted.
	OnRecord(topic string, lines int)

	// OnFlushSuccess is called after a batch was accepted by the sink.
	OnFlushSuccess(lines, bytes int, duration time.Duration)

	// OnFlushError is called after a failed write; failures is the
	// consecutive failure count including this one.
	OnFlushError(err error, lines, failures int)

	// OnPending reports the number of buffered lines after a tick.
	OnPending(lines int)
}
