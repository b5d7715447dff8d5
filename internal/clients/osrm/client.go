// Package osrm fetches walking routes from an OSRM-compatible routing
// service and converts them into the internal route model.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

// Client provides access to the OSRM HTTP API, walking profile.
type Client struct {
	baseURL    string
	httpClient *http.Client
	geoUtils   geo.GeoUtils
}

// NewClient creates an OSRM client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		geoUtils: geo.NewGeoUtils(),
	}
}

// FetchRoute computes a walking route between two coordinates. The full
// overview geometry and turn-by-turn steps are always requested; segment
// splitting and projection downstream depend on both.
func (c *Client) FetchRoute(ctx context.Context, origin, destination geo.Point) (*routing.Route, error) {
	url := fmt.Sprintf("%s/route/v1/foot/%f,%f;%f,%f?overview=full&steps=true",
		c.baseURL,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("routing service rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("routing API error %d: %s", resp.StatusCode, string(body))
	}

	var response osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Code != "Ok" {
		return nil, fmt.Errorf("routing failed (%s): %w", response.Code, routing.ErrUpstreamDataMissing)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("no routes in response: %w", routing.ErrUpstreamDataMissing)
	}

	return c.convertRoute(response.Routes[0])
}

// convertRoute maps the OSRM wire format onto the internal route model,
// decoding polyline geometry and classifying every maneuver.
func (c *Client) convertRoute(route osrmRoute) (*routing.Route, error) {
	points, err := c.geoUtils.DecodePolyline(route.Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode route geometry: %w", err)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("route geometry has %d points: %w", len(points), routing.ErrUpstreamDataMissing)
	}

	var steps []routing.Step
	for _, leg := range route.Legs {
		for _, s := range leg.Steps {
			step := routing.Step{
				Kind:            routing.ParseStepKind(s.Maneuver.Type, s.Maneuver.Modifier),
				Modifier:        s.Maneuver.Modifier,
				RoadName:        s.Name,
				DistanceMeters:  s.Distance,
				DurationSeconds: s.Duration,
				Location: geo.Point{
					Latitude:  s.Maneuver.Location[1],
					Longitude: s.Maneuver.Location[0],
				},
			}
			if s.Geometry != "" {
				if g, err := c.geoUtils.DecodePolyline(s.Geometry); err == nil {
					step.Geometry = g
				}
			}
			steps = append(steps, step)
		}
	}

	return &routing.Route{
		Points:          points,
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
		Steps:           steps,
	}, nil
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string    `json:"geometry"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Name     string       `json:"name"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry string       `json:"geometry"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Type     string     `json:"type"`
	Modifier string     `json:"modifier"`
	Location [2]float64 `json:"location"` // lon, lat
}
