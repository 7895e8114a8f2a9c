package amazon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
		wantErr    bool
	}{
		{"bare asin", "B08N5WRWNW", "B08N5WRWNW", false},
		{"lowercase asin", "b08n5wrwnw", "B08N5WRWNW", false},
		{"dp url", "https://www.amazon.com/dp/B08N5WRWNW", "B08N5WRWNW", false},
		{"dp url with title", "https://www.amazon.com/Echo-Dot/dp/B08N5WRWNW/ref=sr_1_1", "B08N5WRWNW", false},
		{"gp product url", "https://www.amazon.com/gp/product/B08N5WRWNW", "B08N5WRWNW", false},
		{"reviews url", "https://www.amazon.com/product-reviews/B08N5WRWNW", "B08N5WRWNW", false},
		{"too short", "B08N5", "", true},
		{"url without asin", "https://www.amazon.com/s?k=echo", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractASIN(tt.identifier)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const reviewsFixture = `<!DOCTYPE html>
<html><head><title>Customer reviews</title></head><body>
<div data-hook="review">
  <span class="a-profile-name">Dana</span>
  <a data-hook="review-title"><span>Works great</span></a>
  <i data-hook="review-star-rating"><span>5.0 out of 5 stars</span></i>
  <span data-hook="review-date">Reviewed in the United States on May 1, 2025</span>
  <span data-hook="review-body"><span>Exactly what I needed.</span></span>
</div>
<div data-hook="review">
  <span class="a-profile-name">Eli</span>
  <a data-hook="review-title"><span>Meh</span></a>
  <i data-hook="cmps-review-star-rating"><span>2.0 out of 5 stars</span></i>
  <span data-hook="review-date">Reviewed in the United States on May 3, 2025</span>
  <span data-hook="review-body"><span>Stopped working after a week.</span></span>
</div>
</body></html>`

func TestFetchReviews_ParsesReviewBlocks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product-reviews/B08N5WRWNW", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(reviewsFixture))
	}))
	defer ts.Close()

	s := NewScraper(WithBaseURL(ts.URL))

	reviews, err := s.FetchReviews(context.Background(), "https://www.amazon.com/dp/B08N5WRWNW")

	require.NoError(t, err)
	require.Len(t, reviews, 2)

	assert.Equal(t, "Dana", reviews[0].Author)
	assert.Equal(t, 5.0, reviews[0].Rating)
	assert.Equal(t, "Exactly what I needed.", reviews[0].Text)
	assert.Contains(t, reviews[0].Date, "May 1, 2025")
	assert.Equal(t, "Works great", reviews[0].Extra["title"])

	assert.Equal(t, "Eli", reviews[1].Author)
	assert.Equal(t, 2.0, reviews[1].Rating)
}

func TestFetchReviews_NoReviewsOnPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Customer reviews</title></head><body></body></html>"))
	}))
	defer ts.Close()

	s := NewScraper(WithBaseURL(ts.URL))

	reviews, err := s.FetchReviews(context.Background(), "B08N5WRWNW")

	// An empty page is a clean zero-review success, not an error.
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestFetchReviews_CaptchaPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Robot Check</title></head><body>captcha</body></html>"))
	}))
	defer ts.Close()

	s := NewScraper(WithBaseURL(ts.URL))

	_, err := s.FetchReviews(context.Background(), "B08N5WRWNW")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "captcha")
}

func TestFetchReviews_Throttled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	s := NewScraper(WithBaseURL(ts.URL))

	_, err := s.FetchReviews(context.Background(), "B08N5WRWNW")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttling")
}
