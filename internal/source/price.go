package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var priceRe = regexp.MustCompile(`\d[\d.,]*`)

// ExtractPrice pulls a numeric price from the page using the configured CSS
// selector. The first numeric run inside the selected element wins; currency
// symbols and thousands separators are tolerated.
func ExtractPrice(html, selector string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse page: %w", err)
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0, fmt.Errorf("selector %q matched nothing", selector)
	}
	return ParsePrice(sel.Text())
}

// ParsePrice normalizes a scraped price string ("$1,299.00", "1.299,00 €")
// into a float.
func ParsePrice(text string) (float64, error) {
	raw := priceRe.FindString(text)
	if raw == "" {
		return 0, fmt.Errorf("no number in %q", strings.TrimSpace(text))
	}

	// A single trailing comma is a decimal separator ("12,99" or
	// "1.299,00"); everything else treats commas as thousands separators.
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	commaDecimal := lastComma > lastDot &&
		strings.Count(raw, ",") == 1 &&
		!(lastDot == -1 && len(raw)-lastComma-1 == 3)
	if commaDecimal {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	} else {
		raw = strings.ReplaceAll(raw, ",", "")
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %v", price)
	}
	return price, nil
}
