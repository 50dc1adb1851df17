package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/detect"
	"github.com/vigilbot/vigil/internal/watch"
)

// CheckRepo runs one tick for one repository watch.
func (c *Checks) CheckRepo(ctx context.Context, id string) error {
	repos, err := loadCollection[watch.RepoWatch](ctx, c.store, watch.CollectionRepos)
	if err != nil {
		return fmt.Errorf("load repo watches: %w", err)
	}
	idx := findRepo(repos, id)
	if idx < 0 {
		c.logger.Debug("repo watch no longer exists, skipping", zap.String("watch_id", id))
		return nil
	}
	w := repos[idx]
	if !w.Enabled {
		return nil
	}

	snap, fetchErr := c.repoSource.Snapshot(ctx, w.Owner, w.Name)
	if fetchErr != nil {
		if err := c.writeRepo(ctx, w, fetchErr); err != nil {
			return err
		}
		return fmt.Errorf("snapshot %s: %w", w.Slug(), fetchErr)
	}

	updated, events := detect.DiffRepo(w, snap, c.clock.Now())
	if err := c.writeRepo(ctx, updated, nil); err != nil {
		return err
	}
	dispatchAll(c.dispatcher, events)
	return nil
}

func (c *Checks) writeRepo(ctx context.Context, updated watch.RepoWatch, checkErr error) error {
	repos, err := loadCollection[watch.RepoWatch](ctx, c.store, watch.CollectionRepos)
	if err != nil {
		return fmt.Errorf("reload repo watches: %w", err)
	}
	idx := findRepo(repos, updated.ID)
	if idx < 0 {
		c.logger.Debug("repo watch deleted mid-check, discarding result", zap.String("watch_id", updated.ID))
		return nil
	}
	repos[idx].LastReleaseTag = updated.LastReleaseTag
	repos[idx].LastStarCount = updated.LastStarCount
	repos[idx].StarsBaselined = updated.StarsBaselined
	repos[idx].Status.Touch(c.clock.Now(), checkErr)
	if err := c.store.Save(ctx, watch.CollectionRepos, repos); err != nil {
		return fmt.Errorf("save repo watches: %w", err)
	}
	return nil
}

func findRepo(repos []watch.RepoWatch, id string) int {
	for i := range repos {
		if repos[i].ID == id {
			return i
		}
	}
	return -1
}
