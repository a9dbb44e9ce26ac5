// Package clearbit provides a client for the Clearbit Company API.
package clearbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://company.clearbit.com/v2"

// ErrNotFound is returned when Clearbit has no record for a domain, or has
// only queued the lookup (HTTP 202).
var ErrNotFound = eris.New("clearbit: company not found")

// Client performs Clearbit company lookups.
type Client interface {
	FindCompany(ctx context.Context, domain string) (*Company, error)
}

// Company is the subset of the Clearbit company object the enrichment
// pipeline consumes.
type Company struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LegalName   string   `json:"legalName"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
	FoundedYear int      `json:"foundedYear"`
	Location    string   `json:"location"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	Tech        []string `json:"tech"`
	Category    Category `json:"category"`
	Geo         Geo      `json:"geo"`
	Metrics     Metrics  `json:"metrics"`
	Twitter     Handle   `json:"twitter"`
	LinkedIn    Handle   `json:"linkedin"`
	Facebook    Handle   `json:"facebook"`
	Crunchbase  Handle   `json:"crunchbase"`
}

// Category classifies the company.
type Category struct {
	Sector        string `json:"sector"`
	IndustryGroup string `json:"industryGroup"`
	Industry      string `json:"industry"`
	SubIndustry   string `json:"subIndustry"`
}

// Geo is the company's headquarters location.
type Geo struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Metrics holds size and money signals. Clearbit returns null for unknowns.
type Metrics struct {
	Employees              *int   `json:"employees"`
	EmployeesRange         string `json:"employeesRange"`
	Raised                 *int64 `json:"raised"`
	AnnualRevenue          *int64 `json:"annualRevenue"`
	EstimatedAnnualRevenue string `json:"estimatedAnnualRevenue"`
}

// Handle is a social profile handle.
type Handle struct {
	Handle string `json:"handle"`
}

// APIError is a non-success HTTP response from Clearbit.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clearbit: unexpected status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether Clearbit rejected the call for quota reasons.
// Clearbit signals exhausted quota with 402 as well as 429.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusPaymentRequired || e.StatusCode == http.StatusTooManyRequests
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Clearbit client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindCompany(ctx context.Context, domain string) (*Company, error) {
	u := c.baseURL + "/companies/find?domain=" + url.QueryEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: read response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusAccepted, http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, eris.Wrap(err, "clearbit: unmarshal response")
	}
	return &company, nil
}
