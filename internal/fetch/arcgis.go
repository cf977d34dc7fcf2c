// Package fetch pages the Stats NZ ArcGIS FeatureServer into a local GeoJSON
// feature collection, the raw input of the analysis pipeline.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the grid fetcher.
type Options struct {
	BaseURL    string // FeatureServer query endpoint
	PageSize   int    // records per request
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RPS        float64 // request rate toward the feature server
}

// Client downloads the population grid page by page.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       Options
	log        *zap.Logger
}

// NewClient creates a fetch client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 2000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "popgrid/1.0"
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps))),
		opts:       opts,
		log:        zap.L().With(zap.String("component", "fetch")),
	}
}

// FetchAll pages through the feature server until a short page signals the
// end, returning the raw features in server order.
func (c *Client) FetchAll(ctx context.Context) ([]json.RawMessage, error) {
	var features []json.RawMessage
	offset := 0
	for {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		features = append(features, page...)
		c.log.Info("fetched page",
			zap.Int("records", len(page)),
			zap.Int("total", len(features)),
		)
		if len(page) < c.opts.PageSize {
			return features, nil
		}
		offset += c.opts.PageSize
	}
}

// Download fetches the full grid and writes it as a FeatureCollection.
func (c *Client) Download(ctx context.Context, dest string) error {
	features, err := c.FetchAll(ctx)
	if err != nil {
		return err
	}

	collection := struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}{Type: "FeatureCollection", Features: features}

	data, err := json.Marshal(collection)
	if err != nil {
		return eris.Wrap(err, "fetch: encode feature collection")
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "fetch: create %s", dir)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return eris.Wrapf(err, "fetch: write %s", dest)
	}

	c.log.Info("grid saved",
		zap.String("path", dest),
		zap.Int("features", len(features)),
	)
	return nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("f", "geojson")
	q.Set("outSR", "4326")
	q.Set("resultOffset", strconv.Itoa(offset))
	q.Set("resultRecordCount", strconv.Itoa(c.opts.PageSize))

	body, err := c.getWithRetry(ctx, c.opts.BaseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var page struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrapf(err, "fetch: parse page at offset %d", offset)
	}
	return page.Features, nil
}

func (c *Client) getWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: build request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn("request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetch: http %d from feature server", resp.StatusCode)
			c.log.Warn("server busy, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetch: http %d from feature server", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			c.backoff(ctx, attempt)
			continue
		}
		return body, nil
	}
	return nil, eris.Wrap(lastErr, "fetch: all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// String describes the source for logs and the report footer.
func (o Options) String() string {
	return fmt.Sprintf("%s (page size %d)", o.BaseURL, o.PageSize)
}
