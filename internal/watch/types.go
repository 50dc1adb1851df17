// Package watch defines the core types shared across the monitoring engine:
// the four watched-entity variants, their persisted state, and the
// collaborator interfaces the engine is wired against.
package watch

import "time"

// Kind identifies a watched-entity variant.
type Kind string

// Watched-entity variants.
const (
	KindFeed    Kind = "feed"
	KindRepo    Kind = "repo"
	KindPrice   Kind = "price"
	KindLottery Kind = "lottery"
)

// Collection names used with the persistent state store. Each variant owns
// one logical collection holding its entity list.
const (
	CollectionFeeds     = "feeds"
	CollectionRepos     = "repo_watches"
	CollectionPrices    = "price_watches"
	CollectionLotteries = "lottery_watches"
)

// Status carries the per-entity fields every variant maintains; it is
// embedded in each entity struct and rewritten once per tick.
type Status struct {
	LastCheck *time.Time `json:"last_check,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Touch records a completed attempt. err may be nil for a clean check.
func (s *Status) Touch(now time.Time, err error) {
	t := now.UTC()
	s.LastCheck = &t
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

// Feed is a subscription to an RSS/Atom feed.
type Feed struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	Title           string        `json:"title,omitempty"`
	Interval        time.Duration `json:"interval"`
	Enabled         bool          `json:"enabled"`
	AllowKeywords   []string      `json:"allow_keywords,omitempty"`
	DenyKeywords    []string      `json:"deny_keywords,omitempty"`
	SeenItemIDs     []string      `json:"seen_item_ids,omitempty"`
	IsFirstCheck    bool          `json:"is_first_check"`
	Status
}

// RepoWatch tracks releases and star milestones of a GitHub repository.
// Owner/Name identify the repo; LastReleaseTag and LastStarCount are the
// previously observed state the next check diffs against.
type RepoWatch struct {
	ID             string        `json:"id"`
	Owner          string        `json:"owner"`
	Name           string        `json:"name"`
	Interval       time.Duration `json:"interval"`
	Enabled        bool          `json:"enabled"`
	LastReleaseTag string        `json:"last_release_tag,omitempty"`
	LastStarCount  int           `json:"last_star_count"`
	StarsBaselined bool          `json:"stars_baselined"`
	Status
}

// Slug returns the owner/name form used in URLs and log fields.
func (r RepoWatch) Slug() string {
	return r.Owner + "/" + r.Name
}

// PriceWatch monitors a product page for price movement.
type PriceWatch struct {
	ID       string        `json:"id"`
	URL      string        `json:"url"`
	Selector string        `json:"selector"`
	Label    string        `json:"label,omitempty"`
	Interval time.Duration `json:"interval"`
	Enabled  bool          `json:"enabled"`

	CurrentPrice float64 `json:"current_price"`
	LastPrice    float64 `json:"last_price"`
	HasLastPrice bool    `json:"has_last_price"`

	NotifyOnAnyChange    bool    `json:"notify_on_any_change"`
	NotifyOnDrop         bool    `json:"notify_on_drop"`
	DropThresholdPercent float64 `json:"drop_threshold_percent"`
	TargetPrice          float64 `json:"target_price"`
	HasTargetPrice       bool    `json:"has_target_price"`
	Status
}

// LotteryWatch polls a rendered page for announced winners. Winners already
// notified are keyed by username under the entity id so re-parsing the same
// announcement stays silent.
type LotteryWatch struct {
	ID                      string        `json:"id"`
	URL                     string        `json:"url"`
	Interval                time.Duration `json:"interval"`
	Enabled                 bool          `json:"enabled"`
	NotifiedWinnerUsernames []string      `json:"notified_winner_usernames,omitempty"`
	Status
}

// Notified reports whether a winner username was already announced for this
// watch.
func (l LotteryWatch) Notified(username string) bool {
	for _, u := range l.NotifiedWinnerUsernames {
		if u == username {
			return true
		}
	}
	return false
}

// Winner is one extracted lottery winner.
type Winner struct {
	Username string
	Prize    string
}

// FeedItem is the normalized form of one feed entry handed to filtering and
// change detection.
type FeedItem struct {
	ID      string
	Title   string
	Summary string
	Content string
	Link    string
}

// Release is the latest published release of a repository, or absent.
type Release struct {
	TagName string
	Name    string
	URL     string
}

// RepoSnapshot is the freshly fetched repository state.
type RepoSnapshot struct {
	Release    *Release
	StarCount  int
	HasRelease bool
}
