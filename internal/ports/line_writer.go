package ports

import "context"

// LineWriter delivers a batch of encoded lines to the ingestion endpoint.
type LineWriter interface {
	// Write performs a single write attempt.
	// Returns nil on success, *domain.TransportError when the request failed
	// and *domain.RejectedError when the endpoint answered with an error status.
	// Implementations must not retry; retry and backoff belong to the caller.
	Write(ctx context.Context, lines []string) error
}
