// Package naver talks to the Naver news search Open API and scrapes article
// bodies from Naver News pages.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
)

const (
	// DefaultBaseURL is the news search endpoint.
	DefaultBaseURL = "https://openapi.naver.com/v1/search/news.json"

	// NewsLinkPrefix marks links hosted on Naver News, the only pages the
	// scraper understands.
	NewsLinkPrefix = "https://n.news.naver.com/"

	// maxDisplay is the largest page size the API accepts.
	maxDisplay = 100
	// maxStart is the largest start offset the API accepts.
	maxStart = 1000
)

// Config holds the settings for constructing a Client.
type Config struct {
	// ClientID and ClientSecret are the Open API application credentials.
	ClientID     string
	ClientSecret string

	// BaseURL overrides the search endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each API request. Defaults to 10s.
	Timeout time.Duration

	// PageInterval is the minimum gap between page requests. Defaults to 1s.
	PageInterval time.Duration
}

// Client is a Naver news search client. Page requests from all callers share
// one rate limiter.
type Client struct {
	id      string
	secret  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a Client from cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("naver: NAVER_CLIENT_ID and NAVER_CLIENT_SECRET are required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.PageInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		id:      cfg.ClientID,
		secret:  cfg.ClientSecret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// searchResponse is the JSON body of a search response.
type searchResponse struct {
	Total int            `json:"total"`
	Items []news.RawItem `json:"items"`
}

// apiError is the JSON body of a failed request.
type apiError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// Search returns up to total hits for keyword sorted by similarity, keeping
// only Naver News links. Pages are requested in order; a failing page stops
// the keyword and the hits gathered so far are returned with the error.
func (c *Client) Search(ctx context.Context, keyword string, total int) ([]news.RawItem, error) {
	if total <= 0 {
		return []news.RawItem{}, nil
	}

	log := logging.FromContext(ctx).With(slog.String("keyword", keyword))
	display := min(total, maxDisplay)
	pages := (total + display - 1) / display

	items := make([]news.RawItem, 0, total)
	for page := range pages {
		start := page*display + 1
		if start > maxStart {
			break
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return items, fmt.Errorf("naver: %q page %d: %w", keyword, page+1, err)
		}

		resp, err := c.fetchPage(ctx, keyword, display, start)
		if err != nil {
			log.Warn("naver: page failed, stopping keyword",
				slog.Int("page", page+1),
				slog.Any("error", err),
			)
			return items, fmt.Errorf("naver: %q page %d: %w", keyword, page+1, err)
		}

		for _, it := range resp.Items {
			if strings.HasPrefix(it.Link, NewsLinkPrefix) {
				items = append(items, it)
			}
		}
		log.Debug("naver: page fetched",
			slog.Int("page", page+1),
			slog.Int("hits", len(resp.Items)),
			slog.Int("kept", len(items)),
		)

		if len(resp.Items) < display {
			break
		}
	}
	return items, nil
}

// fetchPage performs one search request.
func (c *Client) fetchPage(ctx context.Context, keyword string, display, start int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("display", strconv.Itoa(display))
	q.Set("start", strconv.Itoa(start))
	q.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.id)
	req.Header.Set("X-Naver-Client-Secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.ErrorMessage != "" {
			return nil, fmt.Errorf("HTTP %d: %s (%s)", resp.StatusCode, apiErr.ErrorMessage, apiErr.ErrorCode)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
