package schedule

import (
	"context"
	"errors"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/store"
	"github.com/vigilbot/vigil/internal/watch"
)

// Fetcher is the slice of the fetch pipeline the check routines use.
type Fetcher interface {
	FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error)
	FetchRaw(ctx context.Context, url string) (string, error)
	FetchRendered(ctx context.Context, url string) (string, error)
}

// RepoSource produces repository snapshots.
type RepoSource interface {
	Snapshot(ctx context.Context, owner, name string) (watch.RepoSnapshot, error)
}

// Checks bundles the collaborators shared by the four check routines.
type Checks struct {
	store      watch.Store
	fetcher    Fetcher
	repoSource RepoSource
	resolver   watch.Resolver
	dispatcher notify.Dispatcher
	clock      watch.Clock
	logger     *zap.Logger
}

// NewChecks wires the check routines.
func NewChecks(
	st watch.Store,
	fetcher Fetcher,
	repoSource RepoSource,
	resolver watch.Resolver,
	dispatcher notify.Dispatcher,
	clock watch.Clock,
	logger *zap.Logger,
) *Checks {
	if clock == nil {
		clock = watch.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checks{
		store:      st,
		fetcher:    fetcher,
		repoSource: repoSource,
		resolver:   resolver,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// loadCollection reads a collection, mapping a never-saved collection to an
// empty list.
func loadCollection[T any](ctx context.Context, st watch.Store, name string) ([]T, error) {
	var items []T
	if err := st.Load(ctx, name, &items); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func dispatchAll(d notify.Dispatcher, events []notify.Event) {
	for _, evt := range events {
		d.Dispatch(evt)
	}
}
