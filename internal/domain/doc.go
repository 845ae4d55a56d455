// Package domain contains the core entities and value objects for topicflux.
//
// This package is the innermost layer of the bridge. It has no dependencies on
// infrastructure concerns (HTTP, message buses, logging) and contains only the
// data that flows through the pipeline and the errors it can produce.
//
// # Entities
//
//   - [Record]: One timestamped message received from the bus
//   - [Batch]: Ordered encoded lines waiting to be written to the sink
//
// # Errors
//
// Sentinel errors are compared with errors.Is. Sink failures are reported as
// [*TransportError] or [*RejectedError] and are inspected with errors.As.
package domain
