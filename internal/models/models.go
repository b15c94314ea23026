package models

import (
	"time"
)

// Persisted is a record owned by this server rather than the upstream backend.
// Every persisted record expires.
type Persisted interface {
	ID() string
	CreatedAt() time.Time
	ExpiresAt() time.Time
	Validate() error
}

// Store is the data access contract of the sqlite repositories.
type Store[T Persisted] interface {
	Create(record T) error
	Get(id string) (T, error)
	PurgeExpired(now time.Time) (int64, error) // deletes records that expired before now
}
