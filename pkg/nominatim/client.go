// Package nominatim provides reverse geocoding against the OSM Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client reverse-geocodes coordinates to place information.
type Client interface {
	// Reverse resolves a WGS84 coordinate to address details.
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)
}

// Place is the subset of the Nominatim reverse response the pipeline uses.
type Place struct {
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

// Address holds the candidate name fields of a reverse result.
type Address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	Suburb  string `json:"suburb"`
	County  string `json:"county"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// BestName returns the most specific available place name, or "" when the
// response carries none. Candidates are tried city first, then progressively
// coarser divisions, then the leading segment of the display name.
func (p *Place) BestName() string {
	a := p.Address
	for _, candidate := range []string{a.City, a.Town, a.Village, a.Suburb, a.County, a.State, a.Country} {
		if candidate != "" {
			return candidate
		}
	}
	if seg, _, _ := strings.Cut(p.DisplayName, ","); strings.TrimSpace(seg) != "" {
		return strings.TrimSpace(seg)
	}
	return ""
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the Nominatim endpoint, e.g. for a self-hosted
// instance or a test server.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithContact sets the contact address embedded in the User-Agent header.
// The Nominatim usage policy requires one.
func WithContact(contact string) Option {
	return func(c *client) {
		c.contact = contact
	}
}

type client struct {
	baseURL    string
	contact    string
	httpClient *http.Client
}

// NewClient creates a reverse-geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		contact:    "contact@example.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", fmt.Sprintf("%v", lat))
	q.Set("lon", fmt.Sprintf("%v", lon))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")

	reqURL := c.baseURL + "/reverse?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", fmt.Sprintf("popgrid/1.0 (%s)", c.contact))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: reverse request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: reverse returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read response")
	}

	var place Place
	if err := json.Unmarshal(body, &place); err != nil {
		return nil, eris.Wrap(err, "nominatim: decode response")
	}
	return &place, nil
}
