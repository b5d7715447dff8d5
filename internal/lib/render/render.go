// Package render assembles per-segment and overview map views: the pure
// projection output a document layer needs to draw tiles, the path, the
// endpoint markers and POI labels at fixed pixel positions.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/labels"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

// Options holds viewport geometry and rendering limits.
type Options struct {
	SegmentWidth  int
	SegmentHeight int

	OverviewWidth  int
	OverviewHeight int

	// MaxSegmentPoints and MaxOverviewPoints bound path geometry per view;
	// longer sequences are decimated before projection.
	MaxSegmentPoints  int
	MaxOverviewPoints int

	MinZoom int
	MaxZoom int

	TileURLTemplate string

	// PaddingFraction pads the overview bounding region.
	PaddingFraction float64
}

// TilePlacement positions one map tile inside a view. X and Y may be
// negative and W and H extend past the viewport; the document layer clips.
type TilePlacement struct {
	Tile mercator.Tile `json:"tile"`
	URL  string        `json:"url"`
	X    float64       `json:"x"`
	Y    float64       `json:"y"`
	W    float64       `json:"w"`
	H    float64       `json:"h"`
}

// SegmentMarker is a numbered segment-start marker on the overview view.
type SegmentMarker struct {
	Index int            `json:"index"`
	At    mercator.Pixel `json:"at"`
}

// View is one fully laid-out map image: everything positioned in pixel
// space, nothing fetched or drawn yet.
type View struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Region geo.Region `json:"region"`
	Zoom   int        `json:"zoom"`

	Tiles []TilePlacement  `json:"tiles"`
	Path  []mercator.Pixel `json:"path"`
	Start mercator.Pixel   `json:"start"`
	End   mercator.Pixel   `json:"end"`

	Labels  []labels.Placement `json:"labels,omitempty"`
	Markers []SegmentMarker    `json:"markers,omitempty"`
}

// POIFinder discovers points of interest inside a bounding region.
type POIFinder interface {
	FindPOIs(ctx context.Context, region geo.Region) ([]labels.POI, error)
}

// Renderer lays out segment and overview views. POI discovery failures are
// soft: the view renders without labels and the failure is logged.
type Renderer struct {
	opts     Options
	geoUtils geo.GeoUtils
	labeler  *labels.Labeler
	pois     POIFinder
	logger   *slog.Logger
}

// NewRenderer creates a Renderer. The finder may be nil to render without
// POI labels.
func NewRenderer(opts Options, finder POIFinder, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		opts:     opts,
		geoUtils: geo.NewGeoUtils(),
		labeler:  labels.NewLabeler(),
		pois:     finder,
		logger:   logger,
	}
}

// Segment lays out one segment's map view.
func (r *Renderer) Segment(ctx context.Context, seg routing.Segment) (View, error) {
	if len(seg.Points) < 2 {
		return View{}, fmt.Errorf("segment %d: %w", seg.Index, geo.ErrInsufficientGeometry)
	}

	w, h := r.opts.SegmentWidth, r.opts.SegmentHeight
	region := mercator.AdjustForAspectRatio(seg.Region, w, h)
	zoom := mercator.ChooseZoom(region, w, h, r.opts.MinZoom, r.opts.MaxZoom)

	points := r.geoUtils.Decimate(seg.Points, r.opts.MaxSegmentPoints)
	path := mercator.ProjectPath(points, region, w, h)

	view := View{
		Width:  w,
		Height: h,
		Region: region,
		Zoom:   zoom,
		Tiles:  r.placeTiles(region, zoom, w, h),
		Path:   path,
		Start:  mercator.Project(seg.Start, region, w, h),
		End:    mercator.Project(seg.End, region, w, h),
	}

	if r.pois != nil {
		pois, err := r.pois.FindPOIs(ctx, seg.Region)
		if err != nil {
			r.logger.Warn("POI discovery failed, rendering without labels",
				"segment", seg.Index, "error", err)
		} else {
			view.Labels = r.labeler.Place(pois, points, path, region, w, h)
		}
	}

	return view, nil
}

// Overview lays out the whole-route view with numbered segment-start
// markers. No POI labels; at overview scale they collide with everything.
func (r *Renderer) Overview(route *routing.Route, segments []routing.Segment) (View, error) {
	if len(route.Points) < 2 {
		return View{}, fmt.Errorf("overview: %w", geo.ErrInsufficientGeometry)
	}

	w, h := r.opts.OverviewWidth, r.opts.OverviewHeight
	bounds, err := r.geoUtils.BoundingRegion(route.Points, r.opts.PaddingFraction)
	if err != nil {
		return View{}, fmt.Errorf("overview bounds: %w", err)
	}
	region := mercator.AdjustForAspectRatio(bounds, w, h)
	zoom := mercator.ChooseZoom(region, w, h, r.opts.MinZoom, r.opts.MaxZoom)

	points := r.geoUtils.Decimate(route.Points, r.opts.MaxOverviewPoints)

	view := View{
		Width:  w,
		Height: h,
		Region: region,
		Zoom:   zoom,
		Tiles:  r.placeTiles(region, zoom, w, h),
		Path:   mercator.ProjectPath(points, region, w, h),
		Start:  mercator.Project(route.Points[0], region, w, h),
		End:    mercator.Project(route.Points[len(route.Points)-1], region, w, h),
	}

	for _, seg := range segments {
		view.Markers = append(view.Markers, SegmentMarker{
			Index: seg.Index,
			At:    mercator.Project(seg.Start, region, w, h),
		})
	}

	return view, nil
}

// RenderAll lays out every segment view concurrently plus the overview,
// returned in segment order with the overview last.
func (r *Renderer) RenderAll(ctx context.Context, route *routing.Route, segments []routing.Segment) ([]View, error) {
	views := make([]View, len(segments)+1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, seg := range segments {
		g.Go(func() error {
			view, err := r.Segment(ctx, seg)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	g.Go(func() error {
		view, err := r.Overview(route, segments)
		if err != nil {
			return err
		}
		views[len(segments)] = view
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// placeTiles positions every covering tile by projecting its geographic
// corners into the viewport.
func (r *Renderer) placeTiles(region geo.Region, zoom, w, h int) []TilePlacement {
	refs := mercator.TilesCovering(region, zoom)
	placements := make([]TilePlacement, 0, len(refs))
	for _, tile := range refs {
		bounds := mercator.TileBounds(tile)
		nw := mercator.Project(geo.Point{Latitude: bounds.MaxLat, Longitude: bounds.MinLon}, region, w, h)
		se := mercator.Project(geo.Point{Latitude: bounds.MinLat, Longitude: bounds.MaxLon}, region, w, h)
		placements = append(placements, TilePlacement{
			Tile: tile,
			URL:  mercator.ResolveURL(r.opts.TileURLTemplate, tile),
			X:    nw.X,
			Y:    nw.Y,
			W:    se.X - nw.X,
			H:    se.Y - nw.Y,
		})
	}
	return placements
}
