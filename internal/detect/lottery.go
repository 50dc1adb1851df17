package detect

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/watch"
)

// winnerKeywords mark text announcing a winner across the sites we scrape.
var winnerKeywords = []string{"won", "winner", "获得", "抽中", "congratulations", "恭喜"}

var (
	wonLineRe      = regexp.MustCompile(`(?i)(won|winner|获得|抽中)`)
	usernameRe     = regexp.MustCompile(`@([A-Za-z0-9_]{3,32})`)
	embeddedJSONRe = regexp.MustCompile(`"(?:winners|luckyUsers|result)"\s*:\s*(\[[^\]]*\])`)
)

// winnerStrategy extracts winners from rendered content. Strategies are
// independent and pure so each can be tested on its own.
type winnerStrategy struct {
	name string
	run  func(doc *goquery.Document, body string) []watch.Winner
}

// winnerStrategies is the prioritized cascade. The first strategy yielding a
// non-empty list wins; later ones are never run.
var winnerStrategies = []winnerStrategy{
	{name: "table_rows", run: winnersFromTables},
	{name: "winner_cards", run: winnersFromCards},
	{name: "list_items", run: winnersFromListItems},
	{name: "embedded_json", run: winnersFromEmbeddedJSON},
	{name: "strong_tags", run: winnersFromStrongTags},
	{name: "mentions", run: winnersFromMentions},
}

// ExtractWinners runs the cascade over rendered page content and returns
// the winners plus the name of the strategy that produced them.
func ExtractWinners(html string) ([]watch.Winner, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, ""
	}
	for _, strategy := range winnerStrategies {
		if winners := strategy.run(doc, html); len(winners) > 0 {
			return dedupeWinners(winners), strategy.name
		}
	}
	return nil, ""
}

// ResolvedWinner is a winner whose username mapped to a known subscriber.
type ResolvedWinner struct {
	Winner       watch.Winner
	SubscriberID int64
}

// DiffLottery emits one event per resolved winner not yet notified for this
// watch and records each into the notified set, so feeding the same
// announcement twice stays silent the second time.
func DiffLottery(w watch.LotteryWatch, winners []ResolvedWinner, now time.Time) (watch.LotteryWatch, []notify.Event) {
	var events []notify.Event
	for _, rw := range winners {
		if w.Notified(rw.Winner.Username) {
			continue
		}
		w.NotifiedWinnerUsernames = append(w.NotifiedWinnerUsernames, rw.Winner.Username)

		evt := notify.NewEvent(notify.TypeLotteryWinner, watch.KindLottery, w.ID, now)
		evt.Username = rw.Winner.Username
		evt.SubscriberID = rw.SubscriberID
		evt.Prize = rw.Winner.Prize
		evt.URL = w.URL
		events = append(events, evt)
	}
	return w, events
}

// winnersFromTables scans tables whose text mentions a winner keyword and
// takes the first cell of each data row as the username.
func winnersFromTables(doc *goquery.Document, _ string) []watch.Winner {
	var winners []watch.Winner
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !containsWinnerKeyword(table.Text()) {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			username := cleanUsername(cells.First().Text())
			if username == "" {
				return
			}
			prize := ""
			if cells.Length() > 1 {
				prize = strings.TrimSpace(cells.Eq(1).Text())
			}
			winners = append(winners, watch.Winner{Username: username, Prize: prize})
		})
	})
	return winners
}

// winnersFromCards matches elements whose class names a winner card.
func winnersFromCards(doc *goquery.Document, _ string) []watch.Winner {
	var winners []watch.Winner
	doc.Find(`[class*="winner"], [class*="lucky"]`).Each(func(_ int, card *goquery.Selection) {
		if username := cleanUsername(firstMention(card.Text())); username != "" {
			winners = append(winners, watch.Winner{Username: username})
			return
		}
		if username := cleanUsername(card.Find("strong, b").First().Text()); username != "" {
			winners = append(winners, watch.Winner{Username: username})
		}
	})
	return winners
}

// winnersFromListItems takes list items whose text matches the won-keyword
// pattern.
func winnersFromListItems(doc *goquery.Document, _ string) []watch.Winner {
	var winners []watch.Winner
	doc.Find("li").Each(func(_ int, item *goquery.Selection) {
		text := item.Text()
		if !wonLineRe.MatchString(text) {
			return
		}
		username := firstMention(text)
		if username == "" {
			// Fall back to the first token of the line.
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) > 0 {
				username = cleanUsername(fields[0])
			}
		}
		if username != "" {
			winners = append(winners, watch.Winner{Username: username})
		}
	})
	return winners
}

// winnersFromEmbeddedJSON pulls winner arrays out of script payloads keyed
// winners/luckyUsers/result.
func winnersFromEmbeddedJSON(_ *goquery.Document, body string) []watch.Winner {
	match := embeddedJSONRe.FindStringSubmatch(body)
	if match == nil {
		return nil
	}

	var asStrings []string
	if err := json.Unmarshal([]byte(match[1]), &asStrings); err == nil {
		var winners []watch.Winner
		for _, name := range asStrings {
			if username := cleanUsername(name); username != "" {
				winners = append(winners, watch.Winner{Username: username})
			}
		}
		return winners
	}

	var asObjects []struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Prize    string `json:"prize"`
	}
	if err := json.Unmarshal([]byte(match[1]), &asObjects); err != nil {
		return nil
	}
	var winners []watch.Winner
	for _, obj := range asObjects {
		username := cleanUsername(obj.Username)
		if username == "" {
			username = cleanUsername(obj.Name)
		}
		if username != "" {
			winners = append(winners, watch.Winner{Username: username, Prize: obj.Prize})
		}
	}
	return winners
}

// winnersFromStrongTags looks at emphasized names inside congratulatory
// blocks, a layout a few lottery sites share.
func winnersFromStrongTags(doc *goquery.Document, _ string) []watch.Winner {
	var winners []watch.Winner
	doc.Find("div, p, section").Each(func(_ int, block *goquery.Selection) {
		if !containsWinnerKeyword(block.Text()) {
			return
		}
		block.ChildrenFiltered("strong, b").Each(func(_ int, tag *goquery.Selection) {
			if username := cleanUsername(tag.Text()); username != "" {
				winners = append(winners, watch.Winner{Username: username})
			}
		})
	})
	return winners
}

// winnersFromMentions is the loosest strategy: any @username whose
// surrounding 50-character window mentions a winner keyword.
func winnersFromMentions(_ *goquery.Document, body string) []watch.Winner {
	var winners []watch.Winner
	for _, loc := range usernameRe.FindAllStringSubmatchIndex(body, -1) {
		start := loc[0] - 50
		if start < 0 {
			start = 0
		}
		end := loc[1] + 50
		if end > len(body) {
			end = len(body)
		}
		if !containsWinnerKeyword(body[start:end]) {
			continue
		}
		winners = append(winners, watch.Winner{Username: body[loc[2]:loc[3]]})
	}
	return winners
}

func containsWinnerKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range winnerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func firstMention(text string) string {
	if m := usernameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func cleanUsername(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	if s == "" || len(s) > 64 {
		return ""
	}
	// Usernames never contain spaces; a sentence here means we grabbed the
	// wrong node.
	if strings.ContainsAny(s, " \t\n") {
		return ""
	}
	return s
}

func dedupeWinners(winners []watch.Winner) []watch.Winner {
	seen := make(map[string]struct{}, len(winners))
	var out []watch.Winner
	for _, w := range winners {
		if _, ok := seen[w.Username]; ok {
			continue
		}
		seen[w.Username] = struct{}{}
		out = append(out, w)
	}
	return out
}
