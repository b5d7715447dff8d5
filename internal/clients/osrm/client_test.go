package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

// encode builds a polyline fixture from lat/lon pairs.
func encode(coords [][]float64) string {
	return string(polyline.EncodeCoords(coords))
}

func routeFixture() map[string]interface{} {
	geometry := encode([][]float64{
		{38.1352, -120.4654},
		{38.1378, -120.4621},
		{38.1401, -120.4588},
	})
	return map[string]interface{}{
		"code": "Ok",
		"routes": []map[string]interface{}{{
			"geometry": geometry,
			"distance": 612.4,
			"duration": 441.0,
			"legs": []map[string]interface{}{{
				"steps": []map[string]interface{}{
					{
						"name":     "Main Street",
						"distance": 380.0,
						"duration": 274.0,
						"geometry": encode([][]float64{{38.1352, -120.4654}, {38.1378, -120.4621}}),
						"maneuver": map[string]interface{}{
							"type":     "depart",
							"location": []float64{-120.4654, 38.1352},
						},
					},
					{
						"name":     "Church Street",
						"distance": 232.4,
						"duration": 167.0,
						"maneuver": map[string]interface{}{
							"type":     "turn",
							"modifier": "left",
							"location": []float64{-120.4621, 38.1378},
						},
					},
				},
			}},
		}},
	}
}

func TestClient_FetchRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/foot/-120.465400,38.135200;-120.458800,38.140100", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "true", r.URL.Query().Get("steps"))
		json.NewEncoder(w).Encode(routeFixture())
	}))
	defer server.Close()

	client := NewClient(server.URL)
	route, err := client.FetchRoute(context.Background(),
		geo.Point{Latitude: 38.1352, Longitude: -120.4654},
		geo.Point{Latitude: 38.1401, Longitude: -120.4588})
	require.NoError(t, err)

	assert.Len(t, route.Points, 3)
	assert.InDelta(t, 38.1352, route.Points[0].Latitude, 1e-4)
	assert.InDelta(t, -120.4588, route.Points[2].Longitude, 1e-4)
	assert.Equal(t, 612.4, route.DistanceMeters)
	assert.Equal(t, 441.0, route.DurationSeconds)

	require.Len(t, route.Steps, 2)
	assert.Equal(t, routing.StepDepart, route.Steps[0].Kind)
	assert.Equal(t, "Main Street", route.Steps[0].RoadName)
	assert.Len(t, route.Steps[0].Geometry, 2)
	assert.Equal(t, routing.StepTurnLeft, route.Steps[1].Kind)
	assert.InDelta(t, 38.1378, route.Steps[1].Location.Latitude, 1e-9)
	assert.InDelta(t, -120.4621, route.Steps[1].Location.Longitude, 1e-9)
	assert.Empty(t, route.Steps[1].Geometry)
}

func TestClient_FetchRoute_NoRouteFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRoute(context.Background(),
		geo.Point{Latitude: 38.1352, Longitude: -120.4654},
		geo.Point{Latitude: 38.1401, Longitude: -120.4588})
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrUpstreamDataMissing)
	assert.Contains(t, err.Error(), "NoRoute")
}

func TestClient_FetchRoute_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRoute(context.Background(),
		geo.Point{Latitude: 38.1352, Longitude: -120.4654},
		geo.Point{Latitude: 38.1401, Longitude: -120.4588})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_FetchRoute_DegenerateGeometry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture := map[string]interface{}{
			"code": "Ok",
			"routes": []map[string]interface{}{{
				"geometry": encode([][]float64{{38.1352, -120.4654}}),
				"distance": 0.0,
				"duration": 0.0,
			}},
		}
		json.NewEncoder(w).Encode(fixture)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRoute(context.Background(),
		geo.Point{Latitude: 38.1352, Longitude: -120.4654},
		geo.Point{Latitude: 38.1352, Longitude: -120.4654})
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrUpstreamDataMissing)
}
