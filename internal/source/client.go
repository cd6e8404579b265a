package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pizzafeed/importer/pkg/ratelimit"
)

// Client bundles the HTTP plumbing every fetcher shares: a bounded-timeout
// http.Client, the per-platform rate limiter, and the retry policy for
// transient failures.
type Client struct {
	HTTP       *http.Client
	Limiter    *ratelimit.MultiLimiter
	MaxRetries int
	BaseDelay  time.Duration
}

// NewClient creates a shared fetch client. Every outbound request carries
// the given timeout so a stalled upstream is a failure, not a hang.
func NewClient(limiter *ratelimit.MultiLimiter, timeout time.Duration, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    limiter,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

// GetBody performs a rate-limited GET and returns the response body.
// Network errors, 429 and 5xx responses are retried with exponential
// backoff; other non-2xx statuses fail immediately.
func (c *Client) GetBody(ctx context.Context, limiterName, url string, header http.Header) ([]byte, error) {
	return c.getBody(ctx, c.HTTP, limiterName, url, header)
}

// GetBodyWith is GetBody using a caller-supplied HTTP client (used for
// OAuth transports that wrap the base client).
func (c *Client) GetBodyWith(ctx context.Context, httpClient *http.Client, limiterName, url string, header http.Header) ([]byte, error) {
	return c.getBody(ctx, httpClient, limiterName, url, header)
}

func (c *Client) getBody(ctx context.Context, httpClient *http.Client, limiterName, url string, header http.Header) ([]byte, error) {
	var body []byte
	var permErr error

	err := ratelimit.Retry(ctx, c.MaxRetries, c.BaseDelay, func() error {
		if err := c.Limiter.Wait(ctx, limiterName); err != nil {
			permErr = err
			return nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			permErr = fmt.Errorf("failed to create request: %w", err)
			return nil
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("transient upstream error (status %d)", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			permErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(b))
			return nil
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if permErr != nil {
		return nil, permErr
	}
	return body, nil
}

// GetJSON performs a rate-limited GET and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, limiterName, url string, header http.Header, out interface{}) error {
	body, err := c.GetBody(ctx, limiterName, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetJSONWith is GetJSON using a caller-supplied HTTP client
func (c *Client) GetJSONWith(ctx context.Context, httpClient *http.Client, limiterName, url string, header http.Header, out interface{}) error {
	body, err := c.GetBodyWith(ctx, httpClient, limiterName, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
