package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/domain"
)

// Client wraps outbound requests with a timeout and a bounded
// exponential-backoff retry. The retry budget comes from the fetch profile:
// a constrained environment gets a short timeout and a single attempt, a
// normal one gets a longer timeout and up to three attempts.
type Client struct {
	log         zerolog.Logger
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

func NewClient(log zerolog.Logger, settings domain.FetchSettings) *Client {
	return &Client{
		log:         log.With().Str("module", "fetch").Logger(),
		httpClient:  &http.Client{Timeout: settings.Timeout},
		maxAttempts: settings.MaxAttempts,
		retryDelay:  settings.RetryDelay,
	}
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		applyHeader(req, header)
		return req, nil
	})
}

// PostForm performs a form-encoded POST request and returns the response
// body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, header http.Header) ([]byte, error) {
	encoded := form.Encode()
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		applyHeader(req, header)
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		}
		return req, nil
	})
}

// do runs one request through the retry loop. The delay grows by 1.5x after
// each failed attempt. The final failure is returned to the caller, which
// decides whether to treat it as fatal or substitute a fallback.
func (c *Client) do(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	delay := c.retryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.attempt(ctx, build)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}

		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Dur("backoff", delay).
			Msg("request failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(float64(delay) * 1.5)
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return body, nil
}

func applyHeader(req *http.Request, header http.Header) {
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
