package fetch

import "strings"

// startMarkers are tried in fixed priority order when locating the start of
// a feed document inside a noisy payload: the XML prolog first, then the RSS
// root, then the Atom root.
var startMarkers = []string{"<?xml", "<rss", "<feed"}

// SanitizeFeedPayload strips a UTF-8 byte-order mark and any leading garbage
// before the first recognizable start-of-document marker. It returns the
// cleaned text and whether a marker was found; with no marker the input is
// returned unchanged (minus the BOM) so the parser produces the real error.
func SanitizeFeedPayload(raw string) (string, bool) {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = strings.TrimLeft(s, " \t\r\n")

	for _, marker := range startMarkers {
		if idx := strings.Index(s, marker); idx >= 0 {
			return s[idx:], true
		}
	}
	return s, false
}

// ExtractEmbeddedDocument locates feed XML embedded in rendered browser
// output (typically wrapped in <pre> or escaped into the body) using the
// same marker priority as SanitizeFeedPayload, and trims a trailing HTML
// wrapper if the document's closing tag is present.
func ExtractEmbeddedDocument(rendered string) (string, bool) {
	unescaped := htmlUnescape(rendered)
	for i, marker := range startMarkers {
		idx := strings.Index(unescaped, marker)
		if idx < 0 {
			continue
		}
		doc := unescaped[idx:]
		// The prolog marker alone does not tell us the root; fall through
		// to the root markers for the closing tag.
		closing := ""
		switch {
		case i >= 1 && marker == "<rss":
			closing = "</rss>"
		case marker == "<feed":
			closing = "</feed>"
		default:
			if strings.Contains(doc, "<rss") {
				closing = "</rss>"
			} else if strings.Contains(doc, "<feed") {
				closing = "</feed>"
			}
		}
		if closing != "" {
			if end := strings.LastIndex(doc, closing); end >= 0 {
				doc = doc[:end+len(closing)]
			}
		}
		return doc, true
	}
	return "", false
}

var htmlEscaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

func htmlUnescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return htmlEscaper.Replace(s)
}
