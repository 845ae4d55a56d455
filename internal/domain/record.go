package domain

// Record is one message received from the bus.
// Records are created by a source and consumed exactly once by the bridge.
type Record struct {
	// Timestamp is the receive time in unix nanoseconds
	Timestamp int64

	// Topic is the bus topic, a "/" delimited hierarchy (e.g. "home/kitchen/temp")
	Topic string

	// Payload is the raw message body
	Payload []byte
}

// NewRecord creates a Record. The payload is not copied.
func NewRecord(timestamp int64, topic string, payload []byte) Record {
	return Record{
		Timestamp: timestamp,
		Topic:     topic,
		Payload:   payload,
	}
}
