// Package amazon scrapes product reviews from the public product-reviews
// page. Amazon has no public review API, so this is HTML parsing all the way
// down.
package amazon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/html"

	"github.com/pulsecraft/reviewpulse/internal/domain"
	"github.com/pulsecraft/reviewpulse/internal/metrics"
)

const (
	// SourceName is the key this scraper reports under in snapshots.
	SourceName = "amazon"

	defaultBaseURL = "https://www.amazon.com"
)

var (
	asinPattern    = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	asinPathSegs   = []string{"dp", "product", "product-reviews"}
	ratingPattern  = regexp.MustCompile(`^([0-9.]+) out of 5`)
	robotCheckText = "Robot Check"
)

// Scraper fetches Amazon product reviews. It implements domain.SourceScraper
// and makes exactly one upstream attempt per call.
type Scraper struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures the scraper.
type Option func(*Scraper)

// WithBaseURL overrides the site base URL (for testing).
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client. The client's timeout is the
// fetch-level timeout for this source.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) { s.httpClient = hc }
}

// WithUserAgent sets the User-Agent header for page fetches.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// NewScraper creates an Amazon review scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		baseURL:    defaultBaseURL,
		userAgent:  "Mozilla/5.0 (compatible; reviewpulse/1.0)",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements domain.SourceScraper.
func (s *Scraper) Name() string { return SourceName }

// FetchReviews accepts an ASIN or a product URL and returns the reviews from
// the first product-reviews page.
func (s *Scraper) FetchReviews(ctx context.Context, identifier string) ([]domain.Review, error) {
	timer := prometheus.NewTimer(metrics.SourceFetchDuration.WithLabelValues(SourceName))
	defer timer.ObserveDuration()

	asin, err := ExtractASIN(identifier)
	if err != nil {
		metrics.SourceFetchFailures.WithLabelValues(SourceName).Inc()
		return nil, err
	}

	reviews, err := s.fetchPage(ctx, asin)
	if err != nil {
		metrics.SourceFetchFailures.WithLabelValues(SourceName).Inc()
		return nil, err
	}
	return reviews, nil
}

// ExtractASIN pulls the 10-character ASIN out of a product URL, or validates
// a bare ASIN.
func ExtractASIN(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("amazon identifier is empty")
	}
	if !strings.Contains(identifier, "://") {
		upper := strings.ToUpper(identifier)
		if !asinPattern.MatchString(upper) {
			return "", fmt.Errorf("%q is not a valid ASIN", identifier)
		}
		return upper, nil
	}

	u, err := url.Parse(identifier)
	if err != nil {
		return "", fmt.Errorf("invalid amazon URL %q: %w", identifier, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		for _, marker := range asinPathSegs {
			if part == marker && i+1 < len(parts) {
				candidate := strings.ToUpper(parts[i+1])
				if asinPattern.MatchString(candidate) {
					return candidate, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no ASIN found in amazon URL %q", identifier)
}

func (s *Scraper) fetchPage(ctx context.Context, asin string) ([]domain.Review, error) {
	pageURL := fmt.Sprintf("%s/product-reviews/%s", s.baseURL, asin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building amazon request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amazon request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("amazon is throttling requests (status 503)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amazon returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing amazon page: %w", err)
	}
	if pageTitle(doc) == robotCheckText {
		return nil, fmt.Errorf("amazon served a captcha page instead of reviews")
	}

	return parseReviews(doc), nil
}

// parseReviews extracts review blocks marked with data-hook="review".
func parseReviews(doc *html.Node) []domain.Review {
	reviews := []domain.Review{}
	for _, block := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attrValue(n, "data-hook") == "review"
	}) {
		reviews = append(reviews, parseReviewBlock(block))
	}
	return reviews
}

func parseReviewBlock(block *html.Node) domain.Review {
	review := domain.Review{
		Author: textOfFirst(block, func(n *html.Node) bool {
			return n.Type == html.ElementNode && hasClass(n, "a-profile-name")
		}),
		Text: textOfFirst(block, func(n *html.Node) bool {
			return attrValue(n, "data-hook") == "review-body"
		}),
		Date: textOfFirst(block, func(n *html.Node) bool {
			return attrValue(n, "data-hook") == "review-date"
		}),
	}

	ratingText := textOfFirst(block, func(n *html.Node) bool {
		hook := attrValue(n, "data-hook")
		return hook == "review-star-rating" || hook == "cmps-review-star-rating"
	})
	if m := ratingPattern.FindStringSubmatch(ratingText); m != nil {
		review.Rating, _ = strconv.ParseFloat(m[1], 64)
	}

	if title := textOfFirst(block, func(n *html.Node) bool {
		return attrValue(n, "data-hook") == "review-title"
	}); title != "" {
		review.Extra = map[string]any{"title": title}
	}
	return review
}

// --- HTML helpers ---

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
			return // do not descend into a matched block
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

func textOfFirst(root *html.Node, match func(*html.Node) bool) string {
	nodes := findAll(root, match)
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(textContent(nodes[0]))
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

func pageTitle(doc *html.Node) string {
	return textOfFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
