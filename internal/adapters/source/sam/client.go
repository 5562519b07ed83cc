// Package sam provides the HTTP client for the SAM.gov opportunities API
package sam

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.sam.gov/opportunities/v2"
	defaultTimeout = 30 * time.Second
	defaultUA      = "sambot-sweeper"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// Client is a thin SAM.gov client. It issues exactly one request per call
// and surfaces status plus rate headers to the caller; retry policy lives
// in the sweep orchestrator, not here
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("sam"),
		now:  time.Now,
	}
}

// do issues one GET and classifies the response. rawURL may be absolute
// (description and attachment links come back absolute) or a path under
// BaseURL. The Rate snapshot is parsed from headers on every response,
// success or not, so the governor can resync even off an error
func (c *Client) do(ctx context.Context, rawURL string, query url.Values) (*http.Response, Rate, error) {
	u := rawURL
	if !strings.HasPrefix(u, "http") {
		u = strings.TrimSuffix(c.opts.BaseURL, "/") + "/" + strings.TrimPrefix(u, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, Rate{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "sam new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("X-Api-Key", c.opts.APIKey)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, Rate{}, perr.Wrapf(err, perr.ErrorCodeTransport, "sam request failed")
	}

	rate := ParseRate(resp.Header)
	c.log.Debug().
		Str("url", redact(u)).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", rate.Remaining).
		Int("rate_remaining_day", rate.DayRemaining).
		Dur("retry_after", rate.RetryAfter).
		Msg("sam http response")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, rate, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		se := statusError(resp)
		se.RetryAfter = rate.RetryAfter
		return nil, rate, perr.RateLimitedWrap(se, rate.RetryAfter, "sam rate limited")
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, rate, perr.Wrapf(statusError(resp), perr.ErrorCodeUnavailable, "sam transient server error %d", resp.StatusCode)
	default:
		se := statusError(resp)
		return nil, rate, perr.Wrapf(se, perr.ErrorCodeTransport, "sam unexpected status %d body %s", se.Status, se.Body)
	}
}

// statusError drains a bounded body tail for diagnostics and closes
func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// redact strips query values from logged URLs; the api key fallback rides
// in the query string
func redact(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
