package ingestion

import (
	"html"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/54b3r/newsrag-go/internal/news"
)

// DateLayout is the layout articles carry their publication time in.
const DateLayout = "2006-01-02 15:04"

// tagPattern matches any HTML tag, including the <b> highlights the search
// API wraps around matched keywords.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize turns raw search hits into articles ready for indexing.
//
// Items with an unknown publisher are dropped first. Titles are then
// deduplicated by exact match after cleaning: the first occurrence claims the
// title even if it is later excluded for missing content or a bad link, so
// a later duplicate never replaces it. Normalize never fails for a malformed
// item; it only excludes it.
func Normalize(items []news.RawItem, resolver PublisherResolver) []news.Article {
	out := make([]news.Article, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		journal, ok := resolvePublisher(resolver, item)
		if !ok {
			continue
		}

		title := CleanTitle(item.Title)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}

		link := strings.TrimSpace(item.Link)
		content := strings.TrimSpace(item.Content)
		if content == "" || !isAbsoluteURL(link) {
			continue
		}

		out = append(out, news.Article{
			Title:   title,
			Date:    FormatDate(item.PubDate),
			Link:    link,
			Content: content,
			Journal: journal,
		})
	}

	return out
}

// resolvePublisher prefers the publisher's own URL and falls back to the
// aggregator link.
func resolvePublisher(r PublisherResolver, item news.RawItem) (string, bool) {
	if r == nil {
		return "", false
	}
	if item.OriginalLink != "" {
		if name, ok := r.Resolve(item.OriginalLink); ok {
			return name, true
		}
		return "", false
	}
	return r.Resolve(item.Link)
}

// CleanTitle strips HTML tags and entities from a search-result title.
func CleanTitle(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

// FormatDate converts an RFC 1123 publication date ("Tue, 06 May 2025
// 10:59:00 +0900") to DateLayout in the date's own zone. Unparsable input is
// returned unchanged.
func FormatDate(pubDate string) string {
	t, err := mail.ParseDate(strings.TrimSpace(pubDate))
	if err != nil {
		return pubDate
	}
	return t.Format(DateLayout)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
