package naver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/54b3r/newsrag-go/internal/version"
)

// ErrNoArticleBody is returned when a page has no article body element.
var ErrNoArticleBody = errors.New("naver: article body not found")

// articleSelector locates the article body on Naver News pages.
const articleSelector = "article#dic_area"

// captionSelector matches photo captions and embedded media inside the body.
const captionSelector = "script, style, .img_desc, .end_photo_org, .vod_player_wrap"

// Scraper extracts article bodies from Naver News pages.
type Scraper struct {
	client *http.Client
}

// NewScraper constructs a Scraper whose requests time out after timeout
// (default 10s).
func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// Content returns the plain text of the article body at link with runs of
// whitespace collapsed to a single space. Photo captions are excluded.
func (s *Scraper) Content(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("naver: build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("naver: fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("naver: fetch %s: HTTP %d", link, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("naver: parse %s: %w", link, err)
	}

	body := doc.Find(articleSelector).First()
	if body.Length() == 0 {
		return "", ErrNoArticleBody
	}
	body.Find(captionSelector).Remove()

	return strings.Join(strings.Fields(body.Text()), " "), nil
}
