package labels

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
)

var testRegion = geo.Region{
	MinLat: 38.13, MaxLat: 38.15,
	MinLon: -120.47, MaxLon: -120.45,
	CenterLat: 38.14, CenterLon: -120.46,
}

func testRoute() []geo.Point {
	return []geo.Point{
		{Latitude: 38.135, Longitude: -120.465},
		{Latitude: 38.1375, Longitude: -120.4625},
		{Latitude: 38.140, Longitude: -120.460},
		{Latitude: 38.1425, Longitude: -120.4575},
		{Latitude: 38.145, Longitude: -120.455},
	}
}

func testPOI(id int64, name string, category Category, lat, lon float64) POI {
	return POI{
		ID:           id,
		Name:         name,
		Category:     category,
		Location:     geo.Point{Latitude: lat, Longitude: lon},
		PriorityRank: int(id),
	}
}

func TestLabeler_Place_CapsAtThree(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()
	pixelPath := mercator.ProjectPath(route, testRegion, 700, 400)

	pois := []POI{
		testPOI(1, "Old Timers Museum", CategoryMuseum, 38.136, -120.4655),
		testPOI(2, "Murphys Hotel", CategoryMonument, 38.138, -120.4630),
		testPOI(3, "Gold Rush Marker", CategoryMonument, 38.140, -120.4595),
		testPOI(4, "Community Park", CategoryPark, 38.143, -120.4570),
		testPOI(5, "Corner Cafe", CategoryCafe, 38.145, -120.4555),
	}

	placements := labeler.Place(pois, route, pixelPath, testRegion, 700, 400)
	require.Len(t, placements, 3, "display cap is three labels")

	// Priority order preserved: first three candidates selected
	assert.Equal(t, int64(1), placements[0].POI.ID)
	assert.Equal(t, int64(2), placements[1].POI.ID)
	assert.Equal(t, int64(3), placements[2].POI.ID)
	assert.Equal(t, "museum", placements[0].IconKey)
}

func TestLabeler_Place_FiltersByRouteProximity(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()
	pixelPath := mercator.ProjectPath(route, testRegion, 700, 400)

	pois := []POI{
		// ~0.01 degrees (>1km) from every route point
		testPOI(1, "Distant Winery", CategoryAttraction, 38.1495, -120.469),
		testPOI(2, "Murphys Hotel", CategoryMonument, 38.138, -120.4630),
	}

	placements := labeler.Place(pois, route, pixelPath, testRegion, 700, 400)
	require.Len(t, placements, 1)
	assert.Equal(t, int64(2), placements[0].POI.ID)
}

func TestLabeler_Place_SeparationHolds(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()
	pixelPath := mercator.ProjectPath(route, testRegion, 700, 400)

	// Three POIs clustered around the same stretch of route: the greedy
	// search must still find positions whose boxes do not collide.
	pois := []POI{
		testPOI(1, "Murphys Hotel", CategoryMonument, 38.1395, -120.4605),
		testPOI(2, "Old Timers Museum", CategoryMuseum, 38.1400, -120.4600),
		testPOI(3, "Corner Cafe", CategoryCafe, 38.1405, -120.4595),
	}

	placements := labeler.Place(pois, route, pixelPath, testRegion, 700, 400)
	require.Len(t, placements, 3)

	for i := 0; i < len(placements); i++ {
		for j := i + 1; j < len(placements); j++ {
			dx := math.Abs(placements[i].Box.X - placements[j].Box.X)
			dy := math.Abs(placements[i].Box.Y - placements[j].Box.Y)
			overlap := dx < labelWidth+minLabelSeparation && dy < labelHeight+minLabelSeparation
			assert.False(t, overlap, "labels %d and %d overlap (dx=%f dy=%f)", i, j, dx, dy)
		}
	}
}

// shiftedRegion pushes the viewport east so the route's start sits beyond
// the west edge, which is the only way a POI can be near the route yet
// project outside the viewport.
var shiftedRegion = geo.Region{
	MinLat: 38.13, MaxLat: 38.15,
	MinLon: -120.463, MaxLon: -120.443,
	CenterLat: 38.14, CenterLon: -120.453,
}

func TestLabeler_Place_DiscardsFarOffscreen(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()
	pixelPath := mercator.ProjectPath(route, shiftedRegion, 700, 400)

	pois := []POI{
		// ~120px beyond the west edge, well past the clamping slack
		testPOI(1, "Ghost Town", CategoryAttraction, 38.1352, -120.4665),
		testPOI(2, "Gold Rush Marker", CategoryMonument, 38.140, -120.4595),
	}

	placements := labeler.Place(pois, route, pixelPath, shiftedRegion, 700, 400)
	require.Len(t, placements, 1)
	assert.Equal(t, int64(2), placements[0].POI.ID)
}

func TestLabeler_Place_ClampsMarginallyOutside(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()
	pixelPath := mercator.ProjectPath(route, shiftedRegion, 700, 400)

	// ~17px past the west edge: within the slack, so the dot is clamped
	// onto the edge rather than the POI being dropped.
	edge := testPOI(1, "Trailhead", CategoryViewpoint, 38.1352, -120.4635)

	placements := labeler.Place([]POI{edge}, route, pixelPath, shiftedRegion, 700, 400)
	require.Len(t, placements, 1)
	assert.GreaterOrEqual(t, placements[0].Anchor.X, 0.0)
	assert.LessOrEqual(t, placements[0].Anchor.X, 700.0)
}

func TestLabeler_Place_FallbackNeverFails(t *testing.T) {
	labeler := NewLabeler()
	route := testRoute()

	// A viewport narrower than a label box: no searched position can
	// satisfy the margin constraint, so the clamped fallback engages.
	pixelPath := mercator.ProjectPath(route, testRegion, 60, 30)
	pois := []POI{testPOI(1, "Murphys Hotel", CategoryMonument, 38.138, -120.4630)}

	placements := labeler.Place(pois, route, pixelPath, testRegion, 60, 30)
	require.Len(t, placements, 1, "placement degrades, never fails")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "Murphys Hotel", truncateName("Murphys Hotel"))

	long := "Calaveras County Historical Society Museum"
	got := truncateName(long)
	assert.Equal(t, maxNameLength, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCategoryFromTags(t *testing.T) {
	assert.Equal(t, CategoryMuseum, CategoryFromTags(map[string]string{"tourism": "museum"}))
	assert.Equal(t, CategoryMonument, CategoryFromTags(map[string]string{"historic": "building"}))
	assert.Equal(t, CategoryCafe, CategoryFromTags(map[string]string{"amenity": "cafe"}))
	assert.Equal(t, CategoryPark, CategoryFromTags(map[string]string{"leisure": "park"}))
	assert.Equal(t, CategoryShop, CategoryFromTags(map[string]string{"shop": "books"}))

	// Unknown tags land on the explicit fallback
	assert.Equal(t, CategoryOther, CategoryFromTags(map[string]string{"man_made": "flagpole"}))
	assert.Equal(t, "poi", CategoryOther.IconKey())
}
