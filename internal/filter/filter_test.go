package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigilbot/vigil/internal/watch"
)

func item(title, summary, content string) watch.FeedItem {
	return watch.FeedItem{Title: title, Summary: summary, Content: content}
}

func TestMatch_NoListsPassesEverything(t *testing.T) {
	t.Parallel()

	require.True(t, Match(item("anything", "", ""), nil, nil))
}

func TestMatch_AllowListRequiresOneHit(t *testing.T) {
	t.Parallel()

	allow := []string{"golang", "kubernetes"}
	require.True(t, Match(item("Go 1.25 released", "all about GoLang", ""), allow, nil))
	require.False(t, Match(item("Python 3.14 released", "", ""), allow, nil))
}

func TestMatch_DenyListRejectsOnAnyHit(t *testing.T) {
	t.Parallel()

	deny := []string{"sponsored", "webinar"}
	require.False(t, Match(item("Sponsored: best laptops", "", ""), nil, deny))
	require.True(t, Match(item("Release notes", "", ""), nil, deny))
}

func TestMatch_DenyWinsOverAllow(t *testing.T) {
	t.Parallel()

	got := Match(item("golang webinar next week", "", ""), []string{"golang"}, []string{"webinar"})
	require.False(t, got)
}

func TestMatch_SearchesSummaryAndContent(t *testing.T) {
	t.Parallel()

	require.True(t, Match(item("title", "mentions Rust here", ""), []string{"rust"}, nil))
	require.True(t, Match(item("title", "", "deep in the body: rust"), []string{"rust"}, nil))
}

func TestMatch_EmptyKeywordsIgnored(t *testing.T) {
	t.Parallel()

	// A stray empty string in either list must not match everything.
	require.False(t, Match(item("no hits", "", ""), []string{"", "golang"}, nil))
	require.True(t, Match(item("fine", "", ""), nil, []string{""}))
}

func TestItems_KeepsMatchingSubsetInOrder(t *testing.T) {
	t.Parallel()

	in := []watch.FeedItem{
		item("go release", "", ""),
		item("sponsored go course", "", ""),
		item("rust release", "", ""),
		item("go modules deep dive", "", ""),
	}
	out := Items(in, []string{"go"}, []string{"sponsored"})
	require.Len(t, out, 2)
	require.Equal(t, "go release", out[0].Title)
	require.Equal(t, "go modules deep dive", out[1].Title)
}

func TestItems_NoListsReturnsInputUntouched(t *testing.T) {
	t.Parallel()

	in := []watch.FeedItem{item("a", "", ""), item("b", "", "")}
	require.Equal(t, in, Items(in, nil, nil))
}
