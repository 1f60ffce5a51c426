// Package storage holds the client's durable state. Only the identity
// store reads or writes it; every other component receives the identity
// as an explicit parameter.
package storage

// UserIDKey is the single key the client persists, matching the browser
// original's localStorage entry.
const UserIDKey = "user_id"

type Storage interface {
	// LoadUserID returns the stored identity and whether one exists.
	LoadUserID() (string, bool, error)
	// SaveUserID persists the identity, replacing any previous value.
	SaveUserID(id string) error
	Close() error
}
