// Package nominatim reverse-geocodes coordinates into short place captions
// for segment headings. Captions are decorative; callers treat a failed
// lookup as "no caption", never as a fatal error.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/strollmaps/walkbook/internal/lib/geo"
)

// Client provides access to a Nominatim reverse-geocoding endpoint.
// Requests are paced to at most one per minInterval, which the public
// endpoint's usage policy requires.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	minInterval time.Duration

	mutex       sync.Mutex
	lastRequest time.Time
}

// NewClient creates a Nominatim client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: "walkbook/1.0 (printable walking directions)",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		minInterval: time.Second,
	}
}

// ReverseGeocode returns a short caption for the coordinate, like
// "Main Street, Murphys". An empty caption with a nil error means the
// service had nothing useful to say about the location.
func (c *Client) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	if err := c.pace(ctx); err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", p.Latitude))
	query.Set("lon", fmt.Sprintf("%f", p.Longitude))
	query.Set("zoom", "17")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return "", fmt.Errorf("geocoding rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("geocoding API error %d: %s", resp.StatusCode, string(body))
	}

	var response reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return response.caption(), nil
}

// pace blocks until the minimum interval since the previous request has
// elapsed, or the context is done. Serializes concurrent callers.
func (c *Client) pace(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.lastRequest.IsZero() {
		wait := c.minInterval - time.Since(c.lastRequest)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

type reverseResponse struct {
	DisplayName string         `json:"display_name"`
	Address     reverseAddress `json:"address"`
}

type reverseAddress struct {
	Road          string `json:"road"`
	Pedestrian    string `json:"pedestrian"`
	Footway       string `json:"footway"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
}

// caption builds a two-part "street, locality" caption from the most
// specific address components present, falling back to the first two
// comma-separated parts of the display name.
func (r reverseResponse) caption() string {
	street := firstNonEmpty(r.Address.Road, r.Address.Pedestrian, r.Address.Footway)
	locality := firstNonEmpty(r.Address.Neighbourhood, r.Address.Suburb, r.Address.Village, r.Address.Town, r.Address.City)

	switch {
	case street != "" && locality != "":
		return street + ", " + locality
	case street != "":
		return street
	case locality != "":
		return locality
	}

	parts := strings.SplitN(r.DisplayName, ",", 3)
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(r.DisplayName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
