package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/labels"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

func testOptions() Options {
	return Options{
		SegmentWidth:      700,
		SegmentHeight:     400,
		OverviewWidth:     700,
		OverviewHeight:    180,
		MaxSegmentPoints:  100,
		MaxOverviewPoints: 150,
		MinZoom:           12,
		MaxZoom:           16,
		TileURLTemplate:   "https://tile.example.com/{z}/{x}/{y}.png",
		PaddingFraction:   0.1,
	}
}

func murphysPoints() []geo.Point {
	return []geo.Point{
		{Latitude: 38.1352, Longitude: -120.4654},
		{Latitude: 38.1378, Longitude: -120.4621},
		{Latitude: 38.1401, Longitude: -120.4588},
		{Latitude: 38.1425, Longitude: -120.4560},
	}
}

func murphysSegment(t *testing.T, points []geo.Point) routing.Segment {
	t.Helper()
	region, err := geo.NewGeoUtils().BoundingRegion(points, 0.1)
	require.NoError(t, err)
	return routing.Segment{
		Index:  1,
		Points: points,
		Start:  points[0],
		End:    points[len(points)-1],
		Region: region,
	}
}

type stubFinder struct {
	pois []labels.POI
	err  error
}

func (s *stubFinder) FindPOIs(ctx context.Context, region geo.Region) ([]labels.POI, error) {
	return s.pois, s.err
}

func TestRenderer_Segment(t *testing.T) {
	renderer := NewRenderer(testOptions(), nil, nil)
	seg := murphysSegment(t, murphysPoints())

	view, err := renderer.Segment(context.Background(), seg)
	require.NoError(t, err)

	assert.Equal(t, 700, view.Width)
	assert.Equal(t, 400, view.Height)
	assert.GreaterOrEqual(t, view.Zoom, 12)
	assert.LessOrEqual(t, view.Zoom, 16)
	assert.Len(t, view.Path, len(seg.Points))

	// Adjusted region still contains every route point
	for _, p := range seg.Points {
		assert.True(t, view.Region.Contains(p))
	}

	// Projected path stays inside the viewport
	for _, px := range view.Path {
		assert.GreaterOrEqual(t, px.X, 0.0)
		assert.LessOrEqual(t, px.X, 700.0)
		assert.GreaterOrEqual(t, px.Y, 0.0)
		assert.LessOrEqual(t, px.Y, 400.0)
	}

	// Tile mosaic covers the whole viewport
	require.NotEmpty(t, view.Tiles)
	first := view.Tiles[0]
	last := view.Tiles[len(view.Tiles)-1]
	assert.LessOrEqual(t, first.X, 0.0)
	assert.LessOrEqual(t, first.Y, 0.0)
	assert.GreaterOrEqual(t, last.X+last.W, 700.0)
	assert.GreaterOrEqual(t, last.Y+last.H, 400.0)
	assert.Contains(t, first.URL, "tile.example.com")
	assert.Equal(t, view.Zoom, first.Tile.Zoom)
}

func TestRenderer_Segment_WithPOILabels(t *testing.T) {
	finder := &stubFinder{pois: []labels.POI{{
		ID:       1,
		Name:     "Murphys Hotel",
		Category: labels.CategoryMonument,
		Location: geo.Point{Latitude: 38.1378, Longitude: -120.4621},
	}}}
	renderer := NewRenderer(testOptions(), finder, nil)

	view, err := renderer.Segment(context.Background(), murphysSegment(t, murphysPoints()))
	require.NoError(t, err)
	require.Len(t, view.Labels, 1)
	assert.Equal(t, "Murphys Hotel", view.Labels[0].DisplayName)
}

func TestRenderer_Segment_POIFailureIsSoft(t *testing.T) {
	finder := &stubFinder{err: errors.New("overpass unreachable")}
	renderer := NewRenderer(testOptions(), finder, nil)

	view, err := renderer.Segment(context.Background(), murphysSegment(t, murphysPoints()))
	require.NoError(t, err)
	assert.Empty(t, view.Labels)
}

func TestRenderer_Segment_DecimatesLongGeometry(t *testing.T) {
	points := make([]geo.Point, 0, 300)
	for i := 0; i < 300; i++ {
		points = append(points, geo.Point{
			Latitude:  38.1352 + float64(i)*0.00003,
			Longitude: -120.4654 + float64(i)*0.00003,
		})
	}
	renderer := NewRenderer(testOptions(), nil, nil)

	view, err := renderer.Segment(context.Background(), murphysSegment(t, points))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(view.Path), 150)
	assert.Less(t, len(view.Path), len(points))
}

func TestRenderer_Segment_InsufficientGeometry(t *testing.T) {
	renderer := NewRenderer(testOptions(), nil, nil)
	_, err := renderer.Segment(context.Background(), routing.Segment{
		Index:  2,
		Points: []geo.Point{{Latitude: 38.1352, Longitude: -120.4654}},
	})
	assert.ErrorIs(t, err, geo.ErrInsufficientGeometry)
}

func TestRenderer_Overview(t *testing.T) {
	points := murphysPoints()
	route := &routing.Route{Points: points}
	segments := []routing.Segment{
		murphysSegment(t, points[:2]),
		murphysSegment(t, points[2:]),
	}
	segments[0].Index = 1
	segments[1].Index = 2

	renderer := NewRenderer(testOptions(), nil, nil)
	view, err := renderer.Overview(route, segments)
	require.NoError(t, err)

	assert.Equal(t, 700, view.Width)
	assert.Equal(t, 180, view.Height)
	assert.Empty(t, view.Labels)
	require.Len(t, view.Markers, 2)
	assert.Equal(t, 1, view.Markers[0].Index)
	assert.Equal(t, 2, view.Markers[1].Index)
	for _, p := range points {
		assert.True(t, view.Region.Contains(p))
	}
}

func TestRenderer_RenderAll(t *testing.T) {
	points := murphysPoints()
	route := &routing.Route{Points: points}
	segments := []routing.Segment{
		murphysSegment(t, points[:2]),
		murphysSegment(t, points[1:3]),
		murphysSegment(t, points[2:]),
	}
	for i := range segments {
		segments[i].Index = i + 1
	}

	renderer := NewRenderer(testOptions(), nil, nil)
	views, err := renderer.RenderAll(context.Background(), route, segments)
	require.NoError(t, err)
	require.Len(t, views, 4)

	// Segment views in order, overview last. A segment's start marker
	// coincides with the first projected path point.
	for i := 0; i < 3; i++ {
		assert.Equal(t, 400, views[i].Height)
		assert.InDelta(t, views[i].Path[0].X, views[i].Start.X, 1e-9)
		assert.InDelta(t, views[i].Path[0].Y, views[i].Start.Y, 1e-9)
	}
	assert.Equal(t, 180, views[3].Height)
	assert.Len(t, views[3].Markers, 3)
}

func TestRenderer_RenderAll_PropagatesSegmentError(t *testing.T) {
	points := murphysPoints()
	route := &routing.Route{Points: points}
	segments := []routing.Segment{
		murphysSegment(t, points[:2]),
		{Index: 2, Points: points[:1]},
	}

	renderer := NewRenderer(testOptions(), nil, nil)
	_, err := renderer.RenderAll(context.Background(), route, segments)
	assert.ErrorIs(t, err, geo.ErrInsufficientGeometry)
}
