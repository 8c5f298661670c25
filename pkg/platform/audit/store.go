package audit

import "context"

// Store is an append-only sink for audit events. Implementations include the
// in-memory store (tests, standalone mode) and the Kafka sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
