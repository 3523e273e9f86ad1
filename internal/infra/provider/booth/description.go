package booth

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// descriptionSelectors locate the item description on a detail page.
var descriptionSelectors = []string{
	".js-market-item-detail-description",
	".market-item-detail-description",
	".description",
	".u-text-wrap",
	".main-info-column",
}

// DescriptionExtractor implements domain.DescriptionExtractor for Booth item pages.
type DescriptionExtractor struct {
	logger *zap.Logger
}

// NewDescriptionExtractor creates a new DescriptionExtractor.
func NewDescriptionExtractor(logger *zap.Logger) *DescriptionExtractor {
	return &DescriptionExtractor{logger: logger}
}

// ExtractDescription returns the text of the first selector with non-empty
// text, or the whole page text when none has any.
func (e *DescriptionExtractor) ExtractDescription(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("item page unreadable", zap.Error(err))
		return ""
	}

	doc.Find("script, style, noscript").Remove()

	for _, s := range descriptionSelectors {
		if t := strings.TrimSpace(doc.Find(s).First().Text()); t != "" {
			return t
		}
	}

	return strings.TrimSpace(doc.Text())
}
