package schedule

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/detect"
	"github.com/vigilbot/vigil/internal/filter"
	"github.com/vigilbot/vigil/internal/watch"
)

// CheckFeed runs one tick for one feed subscription: reload config, fetch
// through the full escalation chain, filter, diff against the seen-set,
// persist, then dispatch.
func (c *Checks) CheckFeed(ctx context.Context, id string) error {
	feeds, err := loadCollection[watch.Feed](ctx, c.store, watch.CollectionFeeds)
	if err != nil {
		return fmt.Errorf("load feeds: %w", err)
	}
	idx := findFeed(feeds, id)
	if idx < 0 {
		c.logger.Debug("feed no longer exists, skipping", zap.String("feed_id", id))
		return nil
	}
	feed := feeds[idx]
	if !feed.Enabled {
		return nil
	}

	parsed, fetchErr := c.fetcher.FetchFeed(ctx, feed.URL)
	if fetchErr != nil {
		if err := c.writeFeed(ctx, feed, fetchErr); err != nil {
			return err
		}
		return fmt.Errorf("fetch feed %s: %w", feed.URL, fetchErr)
	}

	items := filter.Items(normalizeItems(parsed), feed.AllowKeywords, feed.DenyKeywords)
	updated, events := detect.DiffFeed(feed, items, c.clock.Now())

	if err := c.writeFeed(ctx, updated, nil); err != nil {
		return err
	}
	dispatchAll(c.dispatcher, events)
	return nil
}

// writeFeed reloads the collection and writes the observed state and status
// back onto the fresh copy, so a config edit made mid-check survives and a
// deleted feed's late result is discarded.
func (c *Checks) writeFeed(ctx context.Context, updated watch.Feed, checkErr error) error {
	feeds, err := loadCollection[watch.Feed](ctx, c.store, watch.CollectionFeeds)
	if err != nil {
		return fmt.Errorf("reload feeds: %w", err)
	}
	idx := findFeed(feeds, updated.ID)
	if idx < 0 {
		c.logger.Debug("feed deleted mid-check, discarding result", zap.String("feed_id", updated.ID))
		return nil
	}
	feeds[idx].SeenItemIDs = updated.SeenItemIDs
	feeds[idx].IsFirstCheck = updated.IsFirstCheck
	feeds[idx].Status.Touch(c.clock.Now(), checkErr)
	if err := c.store.Save(ctx, watch.CollectionFeeds, feeds); err != nil {
		return fmt.Errorf("save feeds: %w", err)
	}
	return nil
}

func findFeed(feeds []watch.Feed, id string) int {
	for i := range feeds {
		if feeds[i].ID == id {
			return i
		}
	}
	return -1
}

// normalizeItems converts parsed entries into the engine's item shape. An
// item without a GUID gets a stable hash of title and link so dedup still
// works.
func normalizeItems(parsed *gofeed.Feed) []watch.FeedItem {
	if parsed == nil {
		return nil
	}
	items := make([]watch.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		id := it.GUID
		if id == "" {
			sum := sha256.Sum256([]byte(it.Title + "|" + it.Link))
			id = fmt.Sprintf("sha256:%x", sum[:16])
		}
		items = append(items, watch.FeedItem{
			ID:      id,
			Title:   it.Title,
			Summary: it.Description,
			Content: it.Content,
			Link:    it.Link,
		})
	}
	return items
}
