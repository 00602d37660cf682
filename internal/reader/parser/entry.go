package parser

import (
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"streamlance.app/internal/model"
)

const httpPrefix = "http"

// publishedLayouts are tried in order when the feed parser couldn't parse a
// published date by itself.
var publishedLayouts = [...]string{
	time.DateTime,
	time.RFC1123Z,
	time.RFC1123,
}

// NewPosting converts a feed item into a posting. It returns nil if the item
// has neither a title nor a link.
func NewPosting(item *gofeed.Item, platform string) *model.Posting {
	title, link := strings.TrimSpace(item.Title), itemLink(item)
	if title == "" && link == "" {
		return nil
	}

	description := itemDescription(item)
	amount, currency := ParseBudget(description)
	return &model.Posting{
		Title:          title,
		Link:           link,
		Description:    description,
		PublishedAt:    itemPublished(item),
		BudgetAmount:   amount,
		BudgetCurrency: currency,
		Skills:         itemSkills(item),
		SourcePlatform: platform,
	}
}

// itemLink prefers the explicit link and falls back to the GUID if it looks
// like an URL.
func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}

	guid := strings.TrimSpace(item.GUID)
	if strings.HasPrefix(guid, httpPrefix) {
		return guid
	}
	return ""
}

func itemDescription(item *gofeed.Item) string {
	if s := strings.TrimSpace(item.Description); s != "" {
		return s
	}
	return strings.TrimSpace(item.Content)
}

func itemPublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}

	s := strings.TrimSpace(item.Published)
	if s == "" {
		return nil
	}

	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func itemSkills(item *gofeed.Item) []string {
	skills := make([]string, 0, len(item.Categories))
	for _, s := range item.Categories {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(skills, s) {
			skills = append(skills, s)
		}
	}
	return skills
}
