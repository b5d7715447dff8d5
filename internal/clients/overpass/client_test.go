package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/labels"
)

var murphysRegion = geo.Region{
	MinLat: 38.13, MaxLat: 38.15,
	MinLon: -120.47, MaxLon: -120.45,
	CenterLat: 38.14, CenterLon: -120.46,
}

const elementsFixture = `{
	"version": 0.6,
	"generator": "Overpass API",
	"elements": [
		{"type": "node", "id": 10, "lat": 38.1380, "lon": -120.4620,
		 "tags": {"amenity": "cafe", "name": "Corner Cafe"}},
		{"type": "node", "id": 11, "lat": 38.1395, "lon": -120.4605,
		 "tags": {"tourism": "museum", "name": "Old Timers Museum"}},
		{"type": "node", "id": 12, "lat": 38.1410, "lon": -120.4590,
		 "tags": {"historic": "hotel", "name": "Murphys Hotel"}},
		{"type": "node", "id": 13, "lat": 38.1420, "lon": -120.4580},
		{"type": "node", "id": 20, "lat": 38.1430, "lon": -120.4570},
		{"type": "node", "id": 21, "lat": 38.1434, "lon": -120.4566},
		{"type": "way", "id": 30, "nodes": [20, 21],
		 "tags": {"leisure": "park", "name": "Community Park"}}
	]
}`

func fixtureServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.Form.Get("data")
		assert.Contains(t, query, `node["tourism"]["name"]`)
		assert.Contains(t, query, "38.130000,-120.470000,38.150000,-120.450000")
		fmt.Fprint(w, elementsFixture)
	}))
}

func TestClient_FindPOIs(t *testing.T) {
	server := fixtureServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	pois, err := client.FindPOIs(context.Background(), murphysRegion)
	require.NoError(t, err)

	// Unnamed node 13 is skipped; way 30 contributes one centroid POI
	require.Len(t, pois, 4)

	// Category weight orders museum and monument ahead of park and cafe
	assert.Equal(t, "Old Timers Museum", pois[0].Name)
	assert.Equal(t, labels.CategoryMuseum, pois[0].Category)
	assert.Equal(t, "Murphys Hotel", pois[1].Name)
	assert.Equal(t, labels.CategoryMonument, pois[1].Category)
	assert.Equal(t, "Community Park", pois[2].Name)
	assert.Equal(t, "Corner Cafe", pois[3].Name)

	for i, poi := range pois {
		assert.Equal(t, i, poi.PriorityRank)
	}

	// Way centroid is the mean of its member nodes
	assert.InDelta(t, 38.1432, pois[2].Location.Latitude, 1e-6)
	assert.InDelta(t, -120.4568, pois[2].Location.Longitude, 1e-6)
}

func TestClient_FindPOIs_CancelledContext(t *testing.T) {
	server := fixtureServer(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL)
	_, err := client.FindPOIs(ctx, murphysRegion)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_FindPOIs_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FindPOIs(context.Background(), murphysRegion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overpass query failed")
}
