// Package mesimulator provides a client for the MeSimulator mortgage
// comparison API.
package mesimulator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the simulator operations used by this application.
type Client interface {
	// Simulate requests offers for one (principal, term) pair and returns
	// the lender offers, best first.
	Simulate(ctx context.Context, principalUF float64, termYears int) ([]Offer, error)
}

// Offer is one lender's quote. Monetary fields come back as display
// strings in mixed Chilean formats; callers parse them.
type Offer struct {
	Lender     string `json:"lender"`
	MonthlyCLP string `json:"monthly_payment"`
	AnnualRate string `json:"annual_rate"`
	Detail     string `json:"detail"`
}

type simulateRequest struct {
	PrincipalUF float64 `json:"principal_uf"`
	TermYears   int     `json:"term_years"`
}

type simulateResponse struct {
	Offers []Offer `json:"offers"`
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

// WithRateLimit overrides the default request rate (1 req/s).
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

// NewClient creates a MeSimulator client throttled to 1 req/s by default.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.mesimulator.cl",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Simulate(ctx context.Context, principalUF float64, termYears int) ([]Offer, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "mesimulator: rate limit")
		}
	}

	payload, err := json.Marshal(simulateRequest{PrincipalUF: principalUF, TermYears: termYears})
	if err != nil {
		return nil, eris.Wrap(err, "mesimulator: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/simulate", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "mesimulator: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "mesimulator: simulate request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "mesimulator: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("mesimulator: simulate returned %d", resp.StatusCode)
	}

	var sr simulateResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "mesimulator: decode response")
	}
	if len(sr.Offers) == 0 {
		return nil, eris.Errorf("mesimulator: no offers for %d years", termYears)
	}
	return sr.Offers, nil
}
