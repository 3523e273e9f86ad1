package booth

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
)

// Selector chains, most specific first. The first selector that matches wins.
var (
	cardSelectors = []string{
		"li.item-card",
		"[data-product-id]",
		"li[data-tracking-name='search-item']",
		".l-row-card-list > li",
		".shop-item-list > li",
	}
	titleSelectors = []string{
		".item-card__title",
		"[data-product-name]",
		".item-card__title-anchor",
		".item-card__title a",
		"h3 a",
		"h2 a",
	}
	priceSelectors = []string{
		".price",
		"[data-price]",
		".item-card__price",
		".u-text-price",
		".shop-item-price",
	}
	thumbnailSelectors = []string{
		"a.js-thumbnail-image",
		"a.item-card__thumbnail-image",
		".item-card__thumbnail-images a[data-original]",
		"img.item-card__thumbnail-image",
		"img[data-src]",
		"img.lazy",
		".item-card__thumbnail img",
		".shop-item-thumbnail img",
	}
	linkSelectors = []string{
		"a.item-card__title-anchor",
		"a[href*='/items/']",
		".item-card__thumbnail a",
		"a.item-card__anchor",
	}
	shopSelectors = []string{
		".item-card__shop-name",
		"[data-shop-name]",
		".item-card__shop-name a",
		".shop-name",
	}
	shopLinkSelectors = []string{
		"a.item-card__shop-name-anchor",
		".item-card__shop-info a",
		"a[href*='.booth.pm']",
	}
	likesSelectors = []string{
		".item-card__wish-count",
		"[data-wish-count]",
		".wish-count",
		".like-count",
	}
	tagSelectors = []string{
		".item-card__tags a",
		".item-card__tag",
	}
	totalCountSelectors = []string{
		".search-result__count",
		"[data-result-count]",
		".result-count",
		".pager-result",
	}
)

// Text markers that accompany the result count when no count element matches.
var totalCountMarkers = []string{"件", "개", "results", "items"}

var (
	digitsPattern       = regexp.MustCompile(`\d+`)
	groupedDigitPattern = regexp.MustCompile(`\d[\d,]*`)
	cardIDPattern       = regexp.MustCompile(`(?i)item[_-]?(\d+)`)
	backgroundPattern   = regexp.MustCompile(`background-image:\s*url\(["']?([^"')\s]+)["']?\)`)
)

const (
	untitled     = "제목 없음"
	priceMissing = "가격 미정"
)

// Parser implements domain.ItemParser for Booth search pages.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new Parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts the listings and the total result count from a search page.
// Cards without an identifiable item id are skipped.
func (p *Parser) Parse(html string) ([]domain.Item, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn("search page unreadable", zap.Error(err))
		return []domain.Item{}, 0
	}

	total := parseTotalCount(doc)

	cards := findAll(doc.Selection, cardSelectors)
	if cards == nil {
		p.logger.Warn("no item cards matched any selector")
		return []domain.Item{}, total
	}

	items := make([]domain.Item, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if item, ok := parseCard(card); ok {
			items = append(items, item)
		}
	})

	p.logger.Debug("search page parsed",
		zap.Int("cards", cards.Length()),
		zap.Int("items", len(items)),
		zap.Int("total", total),
	)

	return items, total
}

func parseCard(card *goquery.Selection) (domain.Item, bool) {
	id := cardItemID(card)
	if id == "" {
		return domain.Item{}, false
	}

	priceText := textOr(findOne(card, priceSelectors), priceMissing)
	value, priceType := domain.ParsePrice(priceText)

	return domain.Item{
		ID:           id,
		Name:         textOr(findOne(card, titleSelectors), untitled),
		PriceText:    priceText,
		PriceValue:   value,
		PriceType:    priceType,
		URL:          NormalizeURL(attr(findOne(card, linkSelectors), "href")),
		ThumbnailURL: imageURL(findOne(card, thumbnailSelectors)),
		ShopName:     textOr(findOne(card, shopSelectors), ""),
		ShopURL:      NormalizeURL(attr(findOne(card, shopLinkSelectors), "href")),
		Likes:        likes(card),
		Tags:         tags(card),
	}, true
}

// cardItemID tries data attributes, then the item link, then the element id.
func cardItemID(card *goquery.Selection) string {
	for _, name := range []string{"data-product-id", "data-item-id"} {
		if v := strings.TrimSpace(attr(card, name)); v != "" {
			return v
		}
	}

	if href := attr(card.Find("a[href*='/items/']").First(), "href"); href != "" {
		if id, ok := domain.ItemIDFromURL(href); ok {
			return id
		}
	}

	if m := cardIDPattern.FindStringSubmatch(attr(card, "id")); m != nil {
		return m[1]
	}

	return ""
}

// imageURL reads lazy-loading attributes before src, skipping placeholders,
// then falls back to an inline background image.
func imageURL(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}

	for _, name := range []string{"data-original", "data-src", "data-lazy", "src"} {
		v := strings.TrimSpace(attr(sel, name))
		lower := strings.ToLower(v)
		if v == "" || strings.HasPrefix(v, "data:") ||
			strings.Contains(lower, "placeholder") || strings.Contains(lower, "loading") {
			continue
		}
		return v
	}

	if m := backgroundPattern.FindStringSubmatch(attr(sel, "style")); m != nil {
		return m[1]
	}

	return ""
}

func likes(card *goquery.Selection) int {
	sel := findOne(card, likesSelectors)
	if sel == nil {
		return 0
	}

	for _, name := range []string{"data-wish-count", "data-count"} {
		if n, err := strconv.Atoi(strings.TrimSpace(attr(sel, name))); err == nil {
			return n
		}
	}

	if m := digitsPattern.FindString(sel.Text()); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}

	return 0
}

func tags(card *goquery.Selection) []string {
	sel := findAll(card, tagSelectors)
	if sel == nil {
		return nil
	}

	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// parseTotalCount reads the result count element, then scans text nodes
// carrying a count marker such as "件".
func parseTotalCount(doc *goquery.Document) int {
	if sel := findOne(doc.Selection, totalCountSelectors); sel != nil {
		for _, name := range []string{"data-result-count", "data-total"} {
			if n, err := strconv.Atoi(strings.TrimSpace(attr(sel, name))); err == nil {
				return n
			}
		}
		if n, ok := firstNumber(sel.Text()); ok {
			return n
		}
	}

	texts := textNodes(doc.Selection)
	for _, marker := range totalCountMarkers {
		for _, t := range texts {
			if !strings.Contains(strings.ToLower(t), marker) {
				continue
			}
			if n, ok := firstNumber(t); ok {
				return n
			}
		}
	}

	return 0
}

func firstNumber(text string) (int, bool) {
	m := groupedDigitPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	return n, err == nil
}

// textNodes returns the trimmed non-empty text nodes under sel, excluding
// script and style contents.
func textNodes(sel *goquery.Selection) []string {
	var out []string
	sel.Find("*").Not("script, style").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "#text" {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// NormalizeURL makes a marketplace link absolute.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return DefaultBaseURL + raw
	case !strings.HasPrefix(raw, "http"):
		return DefaultBaseURL + "/" + raw
	default:
		return raw
	}
}

// findAll returns the matches of the first selector that matches anything, or nil.
func findAll(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if found := root.Find(s); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// findOne returns the first match of the first selector that matches, or nil.
func findOne(root *goquery.Selection, selectors []string) *goquery.Selection {
	if found := findAll(root, selectors); found != nil {
		return found.First()
	}
	return nil
}

func textOr(sel *goquery.Selection, fallback string) string {
	if sel == nil {
		return fallback
	}
	if t := strings.TrimSpace(sel.Text()); t != "" {
		return strings.Join(strings.Fields(t), " ")
	}
	return fallback
}

func attr(sel *goquery.Selection, name string) string {
	if sel == nil {
		return ""
	}
	v, _ := sel.Attr(name)
	return v
}
