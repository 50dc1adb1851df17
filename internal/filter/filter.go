// Package filter applies per-feed allow/deny keyword lists to fetched items
// before change detection sees them.
package filter

import (
	"strings"

	"github.com/vigilbot/vigil/internal/watch"
)

// Match reports whether an item passes the given keyword lists. Matching is
// case-insensitive substring search over the concatenation of title, summary
// and body. A non-empty allow list requires at least one hit; a non-empty
// deny list rejects on any hit; both may apply at once.
func Match(item watch.FeedItem, allow, deny []string) bool {
	text := strings.ToLower(item.Title + " " + item.Summary + " " + item.Content)

	for _, kw := range deny {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}

	if len(allow) == 0 {
		return true
	}
	for _, kw := range allow {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Items returns the subset of items passing Match.
func Items(items []watch.FeedItem, allow, deny []string) []watch.FeedItem {
	if len(allow) == 0 && len(deny) == 0 {
		return items
	}
	var kept []watch.FeedItem
	for _, item := range items {
		if Match(item, allow, deny) {
			kept = append(kept, item)
		}
	}
	return kept
}
