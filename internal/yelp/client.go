// Package yelp fetches business reviews, preferring the Fusion API when an
// API key is configured and falling back to parsing the public business page
// otherwise.
package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/html"

	"github.com/pulsecraft/reviewpulse/internal/domain"
	"github.com/pulsecraft/reviewpulse/internal/metrics"
)

const (
	// SourceName is the key this scraper reports under in snapshots.
	SourceName = "yelp"

	defaultAPIBaseURL = "https://api.yelp.com"
	defaultWebBaseURL = "https://www.yelp.com"
	maxAPIReviews     = 20
)

// Client scrapes Yelp reviews for one business per call. It implements
// domain.SourceScraper and makes exactly one upstream attempt per call.
type Client struct {
	apiKey     string
	apiBaseURL string
	webBaseURL string
	userAgent  string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIBaseURL overrides the Fusion API base URL (for testing).
func WithAPIBaseURL(u string) Option {
	return func(c *Client) { c.apiBaseURL = strings.TrimRight(u, "/") }
}

// WithWebBaseURL overrides the public site base URL (for testing).
func WithWebBaseURL(u string) Option {
	return func(c *Client) { c.webBaseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client. The client's timeout is the
// fetch-level timeout for this source.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header used for page fetches.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a Yelp scraper. An empty apiKey selects the HTML
// fallback path.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		apiBaseURL: defaultAPIBaseURL,
		webBaseURL: defaultWebBaseURL,
		userAgent:  "Mozilla/5.0 (compatible; reviewpulse/1.0)",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements domain.SourceScraper.
func (c *Client) Name() string { return SourceName }

// FetchReviews accepts either a Yelp business ID/alias or a full business
// page URL and returns the newest reviews for it.
func (c *Client) FetchReviews(ctx context.Context, identifier string) ([]domain.Review, error) {
	timer := prometheus.NewTimer(metrics.SourceFetchDuration.WithLabelValues(SourceName))
	defer timer.ObserveDuration()

	businessID, err := ExtractBusinessID(identifier)
	if err != nil {
		metrics.SourceFetchFailures.WithLabelValues(SourceName).Inc()
		return nil, err
	}

	var reviews []domain.Review
	if c.apiKey != "" {
		reviews, err = c.fetchViaAPI(ctx, businessID)
	} else {
		reviews, err = c.fetchViaHTML(ctx, businessID)
	}
	if err != nil {
		metrics.SourceFetchFailures.WithLabelValues(SourceName).Inc()
		return nil, err
	}
	return reviews, nil
}

// ExtractBusinessID normalizes a business identifier: full business URLs are
// reduced to their /biz/ slug, anything else is taken as an ID or alias.
func ExtractBusinessID(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("yelp identifier is empty")
	}
	if !strings.Contains(identifier, "://") {
		return identifier, nil
	}

	u, err := url.Parse(identifier)
	if err != nil {
		return "", fmt.Errorf("invalid yelp URL %q: %w", identifier, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "biz" || parts[1] == "" {
		return "", fmt.Errorf("yelp URL %q does not point at a business page", identifier)
	}
	return parts[1], nil
}

// --- Fusion API path ---

type apiReviewsResponse struct {
	Reviews []struct {
		URL         string  `json:"url"`
		Text        string  `json:"text"`
		Rating      float64 `json:"rating"`
		TimeCreated string  `json:"time_created"`
		User        struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"reviews"`
	Total int `json:"total"`
}

func (c *Client) fetchViaAPI(ctx context.Context, businessID string) ([]domain.Review, error) {
	endpoint := fmt.Sprintf("%s/v3/businesses/%s/reviews?limit=%d&sort_by=newest",
		c.apiBaseURL, url.PathEscape(businessID), maxAPIReviews)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building yelp API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yelp API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yelp API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed apiReviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding yelp API response: %w", err)
	}

	reviews := make([]domain.Review, 0, len(parsed.Reviews))
	for _, r := range parsed.Reviews {
		reviews = append(reviews, domain.Review{
			Author: r.User.Name,
			Rating: r.Rating,
			Text:   r.Text,
			Date:   r.TimeCreated,
			URL:    r.URL,
		})
	}
	return reviews, nil
}

// --- HTML fallback path ---

// ldDocument is the subset of Yelp's embedded JSON-LD we care about.
type ldDocument struct {
	Type   string `json:"@type"`
	Review []struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
		ReviewRating struct {
			RatingValue float64 `json:"ratingValue"`
		} `json:"reviewRating"`
		Description   string `json:"description"`
		DatePublished string `json:"datePublished"`
	} `json:"review"`
}

func (c *Client) fetchViaHTML(ctx context.Context, businessID string) ([]domain.Review, error) {
	pageURL := fmt.Sprintf("%s/biz/%s", c.webBaseURL, url.PathEscape(businessID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building yelp page request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yelp page request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yelp page returned status %d", resp.StatusCode)
	}

	reviews, err := parseEmbeddedReviews(resp.Body)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// parseEmbeddedReviews walks the page looking for JSON-LD blocks that carry
// a review array.
func parseEmbeddedReviews(body io.Reader) ([]domain.Review, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing yelp page: %w", err)
	}

	reviews := []domain.Review{}
	for _, raw := range collectJSONLD(doc) {
		var parsed ldDocument
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			continue
		}
		for _, r := range parsed.Review {
			reviews = append(reviews, domain.Review{
				Author: r.Author.Name,
				Rating: r.ReviewRating.RatingValue,
				Text:   r.Description,
				Date:   r.DatePublished,
			})
		}
	}

	if len(reviews) == 0 {
		return nil, fmt.Errorf("no reviews found in yelp page (page layout may have changed)")
	}
	return reviews, nil
}

func collectJSONLD(doc *html.Node) []string {
	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && attrValue(n, "type") == "application/ld+json" {
			if n.FirstChild != nil {
				blocks = append(blocks, n.FirstChild.Data)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return blocks
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
