// Package detect holds the per-variant change detectors. Each detector is a
// pure function from (previous state, fresh data) to (updated state, emitted
// events); fetching, persistence and delivery live elsewhere.
package detect

import (
	"time"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

// SeenItemLimit bounds the per-feed seen-set; the oldest ids are evicted
// first once the cap is reached.
const SeenItemLimit = 500

// DiffFeed returns the feed with its seen-set advanced and one event per
// genuinely new item. The first-ever check records every item as seen but
// emits nothing, so subscribing to a busy feed does not flood the chat.
func DiffFeed(f watch.Feed, items []watch.FeedItem, now time.Time) (watch.Feed, []notify.Event) {
	seen := make(map[string]struct{}, len(f.SeenItemIDs))
	for _, id := range f.SeenItemIDs {
		seen[id] = struct{}{}
	}

	var events []notify.Event
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		f.SeenItemIDs = append(f.SeenItemIDs, item.ID)

		if f.IsFirstCheck {
			continue
		}
		evt := notify.NewEvent(notify.TypeFeedItem, watch.KindFeed, f.ID, now)
		evt.Title = item.Title
		evt.Body = item.Summary
		evt.URL = item.Link
		events = append(events, evt)
	}

	if n := len(f.SeenItemIDs); n > SeenItemLimit {
		f.SeenItemIDs = append([]string(nil), f.SeenItemIDs[n-SeenItemLimit:]...)
	}
	f.IsFirstCheck = false
	return f, events
}
