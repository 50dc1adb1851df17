package watch

import (
	"context"
	"time"
)

// Store is the persistent key/value state collaborator. Collections are
// whole JSON documents loaded and saved by logical name; there is no
// finer-grained transactionality, so callers must read-modify-write within
// a single critical section.
type Store interface {
	Load(ctx context.Context, collection string, v any) error
	Save(ctx context.Context, collection string, v any) error
}

// Resolver maps an external (scraped) username to an internal subscriber id.
// The lottery detector skips winners that do not resolve.
type Resolver interface {
	FindSubscriberByExternalUsername(ctx context.Context, username string) (int64, bool, error)
}

// Clock returns the current time (swapped for a fake in tests).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with time.Now.
type SystemClock struct{}

// Now returns the wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
