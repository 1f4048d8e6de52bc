// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"
)

// Options tunes the outbound client. A zero Timeout leaves deadlines to the
// request context.
type Options struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
	UserAgent           string
}

// Client is the shared outbound HTTP client for model and identity calls.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(opts Options) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

// HTTPClient exposes the underlying client for SDKs that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
