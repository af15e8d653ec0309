// Package goplaceit provides a client for the GoPlaceit listing search
// API used to collect comparable properties.
package goplaceit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the search operations used by this application.
type Client interface {
	// SearchProperties returns listings matching the params, walking
	// result pages up to params.MaxPages.
	SearchProperties(ctx context.Context, params SearchParams) ([]Property, error)
}

// SearchParams filters a listing search.
type SearchParams struct {
	PropertyType    string // "departamento", "casa"
	TransactionType string // "venta", "arriendo"
	Location        string // "comuna, region"
	MaxPages        int
	MinBedrooms     int
	MinBathrooms    int
	MinAreaM2       float64
	MinParking      int
}

// Property is one raw listing as returned by the API. Prices come back
// as display strings in mixed formats; callers parse them.
type Property struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Address   string `json:"address"`
	Bedrooms  int    `json:"bedrooms"`
	Bathrooms int    `json:"bathrooms"`
	AreaM2    string `json:"area_m2"`
	URL       string `json:"url"`
}

type searchResponse struct {
	Properties []Property `json:"properties"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default request rate (2 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a GoPlaceit client throttled to 2 req/s by default.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.goplaceit.com",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) SearchProperties(ctx context.Context, params SearchParams) ([]Property, error) {
	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []Property
	for page := 1; page <= maxPages; page++ {
		resp, err := c.searchPage(ctx, params, page)
		if err != nil {
			// Later pages are best-effort: partial results beat none.
			if page > 1 {
				return all, nil
			}
			return nil, err
		}
		all = append(all, resp.Properties...)
		if resp.TotalPages > 0 && page >= resp.TotalPages {
			break
		}
	}
	return all, nil
}

func (c *httpClient) searchPage(ctx context.Context, params SearchParams, page int) (*searchResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "goplaceit: rate limit")
	}

	q := url.Values{}
	q.Set("property_type", params.PropertyType)
	q.Set("transaction_type", params.TransactionType)
	q.Set("location", params.Location)
	q.Set("page", strconv.Itoa(page))
	if params.MinBedrooms > 0 {
		q.Set("min_bedrooms", strconv.Itoa(params.MinBedrooms))
	}
	if params.MinBathrooms > 0 {
		q.Set("min_bathrooms", strconv.Itoa(params.MinBathrooms))
	}
	if params.MinAreaM2 > 0 {
		q.Set("min_area_m2", strconv.FormatFloat(params.MinAreaM2, 'f', -1, 64))
	}
	if params.MinParking > 0 {
		q.Set("min_parking", strconv.Itoa(params.MinParking))
	}

	reqURL := fmt.Sprintf("%s/v2/search?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "goplaceit: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "goplaceit: search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "goplaceit: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("goplaceit: search returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "goplaceit: decode response")
	}
	return &sr, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
