// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// Keys persisted by the session store.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// SessionRepository is a small persistent key/value store holding the raw
// bearer token and the JSON-encoded user profile.
type SessionRepository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
