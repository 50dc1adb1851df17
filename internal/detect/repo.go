package detect

import (
	"fmt"
	"time"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

// StarMilestones is the fixed ascending threshold list for star counts.
var StarMilestones = []int{100, 500, 1000, 2000, 5000, 10000, 20000, 50000, 100000}

// DiffRepo compares a fresh repository snapshot against the previously
// observed release tag and star count. A milestone fires at most once per
// crossing, and a single tick reports only the smallest threshold crossed
// even when a jump clears several at once.
func DiffRepo(w watch.RepoWatch, snap watch.RepoSnapshot, now time.Time) (watch.RepoWatch, []notify.Event) {
	var events []notify.Event

	if snap.HasRelease && snap.Release != nil {
		switch {
		case w.LastReleaseTag == "":
			// First observed release is the baseline.
		case snap.Release.TagName != w.LastReleaseTag:
			evt := notify.NewEvent(notify.TypeRepoRelease, watch.KindRepo, w.ID, now)
			evt.Title = fmt.Sprintf("%s %s", w.Slug(), snap.Release.TagName)
			evt.Body = snap.Release.Name
			evt.URL = snap.Release.URL
			events = append(events, evt)
		}
		w.LastReleaseTag = snap.Release.TagName
	}

	if !w.StarsBaselined {
		w.LastStarCount = snap.StarCount
		w.StarsBaselined = true
		return w, events
	}

	for _, threshold := range StarMilestones {
		if w.LastStarCount < threshold && threshold <= snap.StarCount {
			evt := notify.NewEvent(notify.TypeRepoMilestone, watch.KindRepo, w.ID, now)
			evt.Title = w.Slug()
			evt.Threshold = threshold
			evt.StarCount = snap.StarCount
			events = append(events, evt)
			break
		}
	}
	w.LastStarCount = snap.StarCount
	return w, events
}
