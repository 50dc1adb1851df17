package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/detect"
	"github.com/vigilbot/vigil/internal/source"
	"github.com/vigilbot/vigil/internal/watch"
)

// CheckPrice runs one tick for one price watch. A failed extraction records
// the error and leaves the last known price untouched.
func (c *Checks) CheckPrice(ctx context.Context, id string) error {
	watches, err := loadCollection[watch.PriceWatch](ctx, c.store, watch.CollectionPrices)
	if err != nil {
		return fmt.Errorf("load price watches: %w", err)
	}
	idx := findPrice(watches, id)
	if idx < 0 {
		c.logger.Debug("price watch no longer exists, skipping", zap.String("watch_id", id))
		return nil
	}
	w := watches[idx]
	if !w.Enabled {
		return nil
	}

	html, fetchErr := c.fetcher.FetchRaw(ctx, w.URL)
	if fetchErr != nil {
		if err := c.writePrice(ctx, w, false, fetchErr); err != nil {
			return err
		}
		return fmt.Errorf("fetch price page %s: %w", w.URL, fetchErr)
	}

	price, extractErr := source.ExtractPrice(html, w.Selector)
	if extractErr != nil {
		if err := c.writePrice(ctx, w, false, extractErr); err != nil {
			return err
		}
		return fmt.Errorf("extract price from %s: %w", w.URL, extractErr)
	}

	updated, events := detect.DiffPrice(w, price, c.clock.Now())
	if err := c.writePrice(ctx, updated, true, nil); err != nil {
		return err
	}
	dispatchAll(c.dispatcher, events)
	return nil
}

// writePrice persists status always, and the price fields only when a fresh
// extraction succeeded.
func (c *Checks) writePrice(ctx context.Context, updated watch.PriceWatch, priceChanged bool, checkErr error) error {
	watches, err := loadCollection[watch.PriceWatch](ctx, c.store, watch.CollectionPrices)
	if err != nil {
		return fmt.Errorf("reload price watches: %w", err)
	}
	idx := findPrice(watches, updated.ID)
	if idx < 0 {
		c.logger.Debug("price watch deleted mid-check, discarding result", zap.String("watch_id", updated.ID))
		return nil
	}
	if priceChanged {
		watches[idx].CurrentPrice = updated.CurrentPrice
		watches[idx].LastPrice = updated.LastPrice
		watches[idx].HasLastPrice = updated.HasLastPrice
	}
	watches[idx].Status.Touch(c.clock.Now(), checkErr)
	if err := c.store.Save(ctx, watch.CollectionPrices, watches); err != nil {
		return fmt.Errorf("save price watches: %w", err)
	}
	return nil
}

func findPrice(watches []watch.PriceWatch, id string) int {
	for i := range watches {
		if watches[i].ID == id {
			return i
		}
	}
	return -1
}
