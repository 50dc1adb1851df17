package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/detect"
	"github.com/vigilbot/vigil/internal/watch"
)

// CheckLottery runs one tick for one lottery watch: render the page, run
// the winner cascade, resolve winners to subscribers, diff against the
// notified set. Unresolvable winners are skipped silently and not retried.
func (c *Checks) CheckLottery(ctx context.Context, id string) error {
	watches, err := loadCollection[watch.LotteryWatch](ctx, c.store, watch.CollectionLotteries)
	if err != nil {
		return fmt.Errorf("load lottery watches: %w", err)
	}
	idx := findLottery(watches, id)
	if idx < 0 {
		c.logger.Debug("lottery watch no longer exists, skipping", zap.String("watch_id", id))
		return nil
	}
	w := watches[idx]
	if !w.Enabled {
		return nil
	}

	html, fetchErr := c.fetcher.FetchRendered(ctx, w.URL)
	if fetchErr != nil {
		if err := c.writeLottery(ctx, w, fetchErr); err != nil {
			return err
		}
		return fmt.Errorf("render lottery page %s: %w", w.URL, fetchErr)
	}

	winners, strategy := detect.ExtractWinners(html)
	if len(winners) > 0 {
		c.logger.Debug("winners extracted",
			zap.String("watch_id", w.ID),
			zap.String("strategy", strategy),
			zap.Int("count", len(winners)),
		)
	}

	resolved := make([]detect.ResolvedWinner, 0, len(winners))
	for _, winner := range winners {
		subscriberID, ok, err := c.resolver.FindSubscriberByExternalUsername(ctx, winner.Username)
		if err != nil {
			c.logger.Warn("subscriber lookup failed",
				zap.String("username", winner.Username), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		resolved = append(resolved, detect.ResolvedWinner{Winner: winner, SubscriberID: subscriberID})
	}

	updated, events := detect.DiffLottery(w, resolved, c.clock.Now())
	if err := c.writeLottery(ctx, updated, nil); err != nil {
		return err
	}
	dispatchAll(c.dispatcher, events)
	return nil
}

func (c *Checks) writeLottery(ctx context.Context, updated watch.LotteryWatch, checkErr error) error {
	watches, err := loadCollection[watch.LotteryWatch](ctx, c.store, watch.CollectionLotteries)
	if err != nil {
		return fmt.Errorf("reload lottery watches: %w", err)
	}
	idx := findLottery(watches, updated.ID)
	if idx < 0 {
		c.logger.Debug("lottery watch deleted mid-check, discarding result", zap.String("watch_id", updated.ID))
		return nil
	}
	watches[idx].NotifiedWinnerUsernames = updated.NotifiedWinnerUsernames
	watches[idx].Status.Touch(c.clock.Now(), checkErr)
	if err := c.store.Save(ctx, watch.CollectionLotteries, watches); err != nil {
		return fmt.Errorf("save lottery watches: %w", err)
	}
	return nil
}

func findLottery(watches []watch.LotteryWatch, id string) int {
	for i := range watches {
		if watches[i].ID == id {
			return i
		}
	}
	return -1
}
