package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

func repoWatch() watch.RepoWatch {
	return watch.RepoWatch{ID: "r1", Owner: "acme", Name: "widget"}
}

func snapshot(stars int, tag string) watch.RepoSnapshot {
	snap := watch.RepoSnapshot{StarCount: stars}
	if tag != "" {
		snap.HasRelease = true
		snap.Release = &watch.Release{TagName: tag, URL: "https://example.com/" + tag}
	}
	return snap
}

func TestDiffRepo_FirstObservationIsBaseline(t *testing.T) {
	t.Parallel()

	updated, events := DiffRepo(repoWatch(), snapshot(80, "v1.0.0"), time.Unix(1000, 0))

	require.Empty(t, events)
	require.Equal(t, "v1.0.0", updated.LastReleaseTag)
	require.Equal(t, 80, updated.LastStarCount)
	require.True(t, updated.StarsBaselined)
}

func TestDiffRepo_NewReleaseTagNotifies(t *testing.T) {
	t.Parallel()

	w := repoWatch()
	w.LastReleaseTag = "v1.0.0"
	w.StarsBaselined = true
	w.LastStarCount = 80

	updated, events := DiffRepo(w, snapshot(80, "v1.1.0"), time.Unix(1000, 0))

	require.Len(t, events, 1)
	require.Equal(t, notify.TypeRepoRelease, events[0].Type)
	require.Contains(t, events[0].Title, "v1.1.0")
	require.Equal(t, "v1.1.0", updated.LastReleaseTag)
}

func TestDiffRepo_SingleMilestonePerTick(t *testing.T) {
	t.Parallel()

	w := repoWatch()
	w.StarsBaselined = true
	w.LastStarCount = 80

	updated, events := DiffRepo(w, snapshot(1200, ""), time.Unix(1000, 0))

	require.Len(t, events, 1, "a jump over several thresholds reports only one")
	require.Equal(t, notify.TypeRepoMilestone, events[0].Type)
	require.Equal(t, 100, events[0].Threshold, "smallest crossed threshold wins")
	require.Equal(t, 1200, events[0].StarCount)
	require.Equal(t, 1200, updated.LastStarCount)
}

func TestDiffRepo_MilestoneFiresAtMostOncePerCrossing(t *testing.T) {
	t.Parallel()

	w := repoWatch()
	w.StarsBaselined = true
	w.LastStarCount = 80

	w, events := DiffRepo(w, snapshot(150, ""), time.Unix(1000, 0))
	require.Len(t, events, 1)
	require.Equal(t, 100, events[0].Threshold)

	// Hovering above the threshold stays silent.
	w, events = DiffRepo(w, snapshot(160, ""), time.Unix(2000, 0))
	require.Empty(t, events)

	// The next crossing is the next threshold, not the previous one again.
	_, events = DiffRepo(w, snapshot(520, ""), time.Unix(3000, 0))
	require.Len(t, events, 1)
	require.Equal(t, 500, events[0].Threshold)
}

func TestDiffRepo_StarCountDropIsSilent(t *testing.T) {
	t.Parallel()

	w := repoWatch()
	w.StarsBaselined = true
	w.LastStarCount = 600

	updated, events := DiffRepo(w, snapshot(400, ""), time.Unix(1000, 0))
	require.Empty(t, events)
	require.Equal(t, 400, updated.LastStarCount)
}

func TestDiffRepo_NoReleaseIsNotAnError(t *testing.T) {
	t.Parallel()

	updated, events := DiffRepo(repoWatch(), snapshot(10, ""), time.Unix(1000, 0))
	require.Empty(t, events)
	require.Empty(t, updated.LastReleaseTag)
}
