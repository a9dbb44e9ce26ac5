// Package hunter provides a client for the Hunter.io email discovery API.
package hunter

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
)

const defaultBaseURL = "https://api.hunter.io/v2"

// ErrNotFound is returned when Hunter has no data for the request.
var ErrNotFound = eris.New("hunter: not found")

// Client is the Hunter.io API surface used by the contact pipeline.
type Client interface {
	DomainSearch(ctx context.Context, domain string, limit int) (*DomainSearchResult, error)
	FindEmail(ctx context.Context, domain, firstName, lastName string) (*EmailFinderResult, error)
	VerifyEmail(ctx context.Context, email string) (*VerificationResult, error)
}

// DomainSearchResult lists the public emails Hunter knows for a domain.
type DomainSearchResult struct {
	Domain       string  `json:"domain"`
	Organization string  `json:"organization"`
	Pattern      string  `json:"pattern"`
	Emails       []Email `json:"emails"`
	// Total is the number of emails Hunter holds for the domain, which may
	// exceed len(Emails) when a limit is applied.
	Total int `json:"-"`
}

// Email is a single person found by domain search.
type Email struct {
	Value       string `json:"value"`
	Type        string `json:"type"`
	Confidence  int    `json:"confidence"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Position    string `json:"position"`
	Seniority   string `json:"seniority"`
	Department  string `json:"department"`
	LinkedIn    string `json:"linkedin"`
	Twitter     string `json:"twitter"`
	PhoneNumber string `json:"phone_number"`
}

// EmailFinderResult is the most likely address for a named person.
type EmailFinderResult struct {
	Email     string `json:"email"`
	Score     int    `json:"score"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Domain    string `json:"domain"`
}

// VerificationResult describes deliverability of an address.
type VerificationResult struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Result string `json:"result"`
	Score  int    `json:"score"`
}

// Deliverable reports whether Hunter considers the address safe to send to.
func (v *VerificationResult) Deliverable() bool {
	return v.Status == "valid" || v.Result == "deliverable"
}

// APIError is a non-success HTTP response from Hunter.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hunter: unexpected status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the request was rejected for quota reasons.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
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

// NewClient creates a Hunter client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope[T any] struct {
	Data T `json:"data"`
	Meta struct {
		Results int `json:"results"`
	} `json:"meta"`
}

func (c *httpClient) DomainSearch(ctx context.Context, domain string, limit int) (*DomainSearchResult, error) {
	q := url.Values{"domain": {domain}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var env envelope[DomainSearchResult]
	if err := c.get(ctx, "/domain-search", q, &env); err != nil {
		return nil, err
	}
	res := env.Data
	res.Total = env.Meta.Results
	if res.Total < len(res.Emails) {
		res.Total = len(res.Emails)
	}
	return &res, nil
}

func (c *httpClient) FindEmail(ctx context.Context, domain, firstName, lastName string) (*EmailFinderResult, error) {
	q := url.Values{
		"domain":     {domain},
		"first_name": {firstName},
		"last_name":  {lastName},
	}
	var env envelope[EmailFinderResult]
	if err := c.get(ctx, "/email-finder", q, &env); err != nil {
		return nil, err
	}
	if env.Data.Email == "" {
		return nil, ErrNotFound
	}
	return &env.Data, nil
}

func (c *httpClient) VerifyEmail(ctx context.Context, email string) (*VerificationResult, error) {
	var env envelope[VerificationResult]
	if err := c.get(ctx, "/email-verifier", url.Values{"email": {email}}, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "hunter: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "hunter: send request %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "hunter: read response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "hunter: unmarshal %s response", path)
	}
	return nil
}
