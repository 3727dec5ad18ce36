// Package securestore provides the encrypted local key/value store used to
// persist contact snapshots and permission decisions across restarts.
//
// Entries are addressed by a service name and a key and hold opaque strings
// (serialized JSON snapshots). Writes replace the whole value for a key;
// there are no partial-field updates.
package securestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
// A missing entry is a normal empty result, not a failure.
var ErrNotFound = errors.New("securestore: not found")

// Store is the secure local store contract
type Store interface {
	// Set stores value under (service, key), replacing any previous value
	Set(ctx context.Context, service, key, value string) error
	// Get retrieves the value under (service, key); ErrNotFound when absent
	Get(ctx context.Context, service, key string) (string, error)
	// Reset removes every key stored under service
	Reset(ctx context.Context, service string) error
}
