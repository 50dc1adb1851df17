// Package identity resolves externally scraped usernames to known
// subscribers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vigilbot/vigil/internal/store"
	"github.com/vigilbot/vigil/internal/watch"
)

// CollectionSubscribers is the store collection holding known subscribers.
const CollectionSubscribers = "subscribers"

// Subscriber links a Telegram chat to the username other sites mention.
type Subscriber struct {
	ChatID           int64  `json:"chat_id"`
	ExternalUsername string `json:"external_username"`
}

// StoreResolver looks subscribers up in the persistent state on every call,
// so an admin edit takes effect without restart.
type StoreResolver struct {
	store watch.Store
}

// NewStoreResolver builds a resolver over the kv store.
func NewStoreResolver(s watch.Store) *StoreResolver {
	return &StoreResolver{store: s}
}

// FindSubscriberByExternalUsername maps a scraped username to a chat id.
// Unknown usernames report ok=false without error.
func (r *StoreResolver) FindSubscriberByExternalUsername(ctx context.Context, username string) (int64, bool, error) {
	var subscribers []Subscriber
	if err := r.store.Load(ctx, CollectionSubscribers, &subscribers); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load subscribers: %w", err)
	}
	for _, sub := range subscribers {
		if strings.EqualFold(sub.ExternalUsername, username) {
			return sub.ChatID, true, nil
		}
	}
	return 0, false, nil
}
