package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Location is a coarse user location used to bias price searches
type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Locator resolves the user's approximate location
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// SearchResult is one web search hit
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher performs a web search for product prices
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// IPLocator implements Locator using the ipapi.co JSON endpoint
type IPLocator struct {
	baseURL string
	client  *http.Client
}

// NewIPLocator creates an IPLocator against ipapi.co
func NewIPLocator() *IPLocator {
	return NewIPLocatorWithURL("https://ipapi.co")
}

// NewIPLocatorWithURL creates an IPLocator against a custom endpoint for testing
func NewIPLocatorWithURL(baseURL string) *IPLocator {
	return &IPLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Locate looks up the caller's location by IP address
func (l *IPLocator) Locate(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/json/", nil)
	if err != nil {
		return Location{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("calling location API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("location API error (status %d)", resp.StatusCode)
	}

	var body struct {
		City        string `json:"city"`
		Region      string `json:"region"`
		CountryName string `json:"country_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decoding response: %w", err)
	}

	return Location{City: body.City, Region: body.Region, Country: body.CountryName}, nil
}

// CustomSearcher implements Searcher using the Google Custom Search API
type CustomSearcher struct {
	svc      *customsearch.Service
	engineID string
}

// NewCustomSearcher creates a CustomSearcher with the given API key and search engine id
func NewCustomSearcher(ctx context.Context, apiKey, engineID string) (*CustomSearcher, error) {
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("search api key and engine id are required")
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}

	return &CustomSearcher{svc: svc, engineID: engineID}, nil
}

// Search runs a custom search and returns up to five results
func (c *CustomSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	resp, err := c.svc.Cse.List().Cx(c.engineID).Q(query).Num(5).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calling custom search API: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
