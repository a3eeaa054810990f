// Package tags persists per-device key/value tags: alert bookkeeping,
// counters and last-error details that must outlive a single invocation.
package tags

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a tag has never been written for a scope.
var ErrNotFound = errors.New("tag not found")

// Store defines the tag persistence layer. Values are JSON documents.
// Writes are last-write-wins; no transactional guarantees are assumed.
type Store interface {
	// Get returns the raw JSON value of a tag, or ErrNotFound.
	Get(ctx context.Context, scope, key string) (json.RawMessage, error)

	// Set creates or overwrites a tag.
	Set(ctx context.Context, scope, key string, value json.RawMessage) error

	// Delete removes a tag. Deleting a missing tag is not an error.
	Delete(ctx context.Context, scope, key string) error

	// List returns every tag stored for a scope.
	List(ctx context.Context, scope string) (map[string]json.RawMessage, error)

	// Close releases resources.
	Close() error
}
