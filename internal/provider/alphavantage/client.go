package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"

	// maxBody caps how much of a response is read into memory.
	maxBody = 1 << 20
	// maxErrBody caps how much of a non-200 body ends up in an error.
	maxErrBody = 2 << 10
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Alpha Vantage query API. Every endpoint is a GET on
// /query selected by the "function" parameter and authenticated by "apikey".
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	header     http.Header
}

// ClientOption is a configuration option for the Alpha Vantage client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a client authenticated with key. An empty key is
// accepted; the API then answers every call with an error message.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     key,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return c, nil
}

// with returns a copy of c with per-call options applied.
func (c *Client) with(opts []ClientOption) *Client {
	if len(opts) == 0 {
		return c
	}
	cp := *c
	cp.header = c.header.Clone()
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// envelope holds the fields the API may add to any function's payload to
// report a failure with status 200.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (e envelope) err() error {
	// Quota exhaustion is reported under "Note" on older keys and
	// "Information" on newer ones.
	if notice := strings.TrimSpace(e.Note + " " + e.Information); notice != "" {
		return &RateLimitError{Notice: notice}
	}
	if e.ErrorMessage != "" {
		return &APIError{Message: e.ErrorMessage}
	}
	return nil
}

// query calls function with params and decodes the payload into dst.
func (c *Client) query(ctx context.Context, function string, params url.Values, dst any, opts ...ClientOption) error {
	cc := c.with(opts)

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("function", function)
	if cc.apiKey != "" {
		q.Set("apikey", cc.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cc.baseURL+"/query?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", function, err)
	}
	req.Header = cc.header.Clone()

	res, err := cc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing %s request: %w", function, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return &RateLimitError{}
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBody))
		return fmt.Errorf("%s: unexpected status code: %d: %s", function, res.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", function, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", function, err)
	}
	if err := env.err(); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", function, err)
	}
	return nil
}
