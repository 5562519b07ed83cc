package sam

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	json "encoding/json/v2"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// MaxLimit is the hard page-size cap the search endpoint enforces
	MaxLimit = 1000

	defaultLimit   = 100
	maxSearchBody  = 16 << 20
	maxDescBody    = 4 << 20
	wireDateLayout = "01/02/2006"
)

// Query describes one search page request
type Query struct {
	From    time.Time
	To      time.Time
	Offset  int
	Limit   int
	Filters map[string]string
}

// FormatDate renders t in the wire's date layout, for Filters values
func FormatDate(t time.Time) string { return t.Format(wireDateLayout) }

// Search performs GET /search for one page of opportunities
func (c *Client) Search(ctx context.Context, q Query) (Page, Rate, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Set("postedFrom", q.From.Format(wireDateLayout))
	params.Set("postedTo", q.To.Format(wireDateLayout))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(limit))
	for k, v := range q.Filters {
		params.Set(k, v)
	}

	resp, rate, err := c.do(ctx, "search", params)
	if err != nil {
		return Page{}, rate, err
	}
	defer c.closeBody(resp, "search")

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return Page{}, rate, err
	}
	var env searchEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Page{}, rate, err
	}

	page := Page{TotalCount: env.TotalRecords, Records: make([]Record, 0, len(env.OpportunitiesData))}
	for _, raw := range env.OpportunitiesData {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Page{}, rate, err
		}
		rec.Raw = raw
		page.Records = append(page.Records, rec)
	}
	return page, rate, nil
}

// FetchDescription fetches detailed notice text from a description link.
// Some links refuse header auth; on 401/403 the call is retried once with
// the api key appended as a query parameter
func (c *Client) FetchDescription(ctx context.Context, href string) (string, Rate, error) {
	resp, rate, err := c.do(ctx, href, nil)
	if err != nil && refusedAuth(err) && c.opts.APIKey != "" {
		resp, rate, err = c.do(ctx, href, url.Values{"api_key": {c.opts.APIKey}})
	}
	if err != nil {
		return "", rate, err
	}
	defer c.closeBody(resp, "description")

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDescBody))
	if err != nil {
		return "", rate, err
	}
	return string(b), rate, nil
}

// Checksum summarizes one streamed attachment body
type Checksum struct {
	SHA256 string
	Size   int64
}

// FetchAttachment streams an attachment body into dst, hashing as it
// copies. Bodies are never buffered whole
func (c *Client) FetchAttachment(ctx context.Context, href string, dst io.Writer) (Checksum, Rate, error) {
	resp, rate, err := c.do(ctx, href, nil)
	if err != nil {
		return Checksum{}, rate, err
	}
	defer c.closeBody(resp, "attachment")

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), resp.Body)
	if err != nil {
		return Checksum{}, rate, err
	}
	return Checksum{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, rate, nil
}

func (c *Client) closeBody(resp *http.Response, what string) {
	if err := resp.Body.Close(); err != nil {
		c.log.Error().Err(err).Str("endpoint", what).Msg("sam close body failed")
	}
}

func refusedAuth(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
	}
	return false
}
