package labels

import (
	"math"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
)

const (
	// maxLabels caps how many POIs a single rendered view displays.
	maxLabels = 3

	// proximityDegrees is the route-proximity filter threshold, ~500m
	// expressed in the same degree-approximation units as the route.
	proximityDegrees = 0.0045

	// maxNameLength is the label character budget before truncation.
	maxNameLength = 24

	// Label box dimensions used for separation tests, in pixels.
	labelWidth  = 96
	labelHeight = 16

	// viewportMargin keeps label boxes off the document trim edge.
	viewportMargin = 8

	// offscreenSlack is how far outside the viewport a projected POI dot
	// may fall before the POI is discarded instead of clamped.
	offscreenSlack = 24

	minPathDistance    = 10 // label center to route polyline
	minMarkerDistance  = 22 // label center to start/end markers
	minLabelSeparation = 6  // gap between label boxes
)

// Radial offsets and vertical shifts tried in order when searching for a
// label position, nearest first.
var (
	radialOffsets  = []float64{36, 52, 68, 88}
	verticalShifts = []float64{0, -16, 16, -32, 32}
)

// Labeler places POI markers and labels on a segment's rendered view using
// a collision-avoiding greedy search. Pure and deterministic; safe to use
// from concurrent renders.
type Labeler struct{}

// NewLabeler creates a Labeler.
func NewLabeler() *Labeler {
	return &Labeler{}
}

// Place selects up to the display cap of POIs near the route and assigns
// each a non-overlapping marker and label position. Candidates must arrive
// priority-sorted; order is preserved. Placement never fails for a
// selected POI, it only degrades to a clamped fallback position.
func (l *Labeler) Place(pois []POI, route []geo.Point, pixelPath []mercator.Pixel, region geo.Region, width, height int) []Placement {
	w := float64(width)
	h := float64(height)

	var placements []Placement
	for _, poi := range pois {
		if len(placements) >= maxLabels {
			break
		}
		if !nearRoute(poi.Location, route) {
			continue
		}

		dot := mercator.Project(poi.Location, region, width, height)
		if dot.X < -offscreenSlack || dot.X > w+offscreenSlack ||
			dot.Y < -offscreenSlack || dot.Y > h+offscreenSlack {
			// Entirely outside the viewport; nothing to point at.
			continue
		}
		// Marginally outside is clamped so the connector line still
		// reaches a visible dot.
		dot.X = clamp(dot.X, 0, w)
		dot.Y = clamp(dot.Y, 0, h)

		side := preferredSide(dot, pixelPath)
		box, ok := l.searchPosition(dot, side, pixelPath, placements, w, h)
		if !ok {
			box = l.fallbackPosition(dot, side, w, h)
		}

		placements = append(placements, Placement{
			Anchor:      dot,
			Box:         box,
			DisplayName: truncateName(poi.Name),
			IconKey:     poi.Category.IconKey(),
			POI:         poi,
		})
	}
	return placements
}

// searchPosition tries the fixed order of radial offsets and vertical
// shifts, preferred side first, and returns the first position satisfying
// every constraint.
func (l *Labeler) searchPosition(dot mercator.Pixel, side float64, pixelPath []mercator.Pixel, placed []Placement, w, h float64) (mercator.Pixel, bool) {
	for _, s := range []float64{side, -side} {
		for _, offset := range radialOffsets {
			for _, shift := range verticalShifts {
				pos := mercator.Pixel{X: dot.X + s*offset, Y: dot.Y + shift}
				if l.validPosition(pos, pixelPath, placed, w, h) {
					return pos, true
				}
			}
		}
	}
	return mercator.Pixel{}, false
}

func (l *Labeler) validPosition(pos mercator.Pixel, pixelPath []mercator.Pixel, placed []Placement, w, h float64) bool {
	// Label box fully inside the viewport margin
	if pos.X-labelWidth/2 < viewportMargin || pos.X+labelWidth/2 > w-viewportMargin ||
		pos.Y-labelHeight/2 < viewportMargin || pos.Y+labelHeight/2 > h-viewportMargin {
		return false
	}

	// Clear of the route path
	if len(pixelPath) > 0 && distanceToPolyline(pos, pixelPath) < minPathDistance {
		return false
	}

	// Clear of the start and end markers
	if len(pixelPath) > 0 {
		if pixelDistance(pos, pixelPath[0]) < minMarkerDistance ||
			pixelDistance(pos, pixelPath[len(pixelPath)-1]) < minMarkerDistance {
			return false
		}
	}

	// Rectangular separation from every already-placed label
	for _, p := range placed {
		if math.Abs(pos.X-p.Box.X) < labelWidth+minLabelSeparation &&
			math.Abs(pos.Y-p.Box.Y) < labelHeight+minLabelSeparation {
			return false
		}
	}
	return true
}

// fallbackPosition returns a clamped position offset from the dot on the
// preferred side. Used when no searched position validates.
func (l *Labeler) fallbackPosition(dot mercator.Pixel, side float64, w, h float64) mercator.Pixel {
	return mercator.Pixel{
		X: clamp(dot.X+side*radialOffsets[0], viewportMargin+labelWidth/2, w-viewportMargin-labelWidth/2),
		Y: clamp(dot.Y, viewportMargin+labelHeight/2, h-viewportMargin-labelHeight/2),
	}
}

// nearRoute reports whether the POI lies within the proximity threshold of
// any point on the route, in degree space.
func nearRoute(p geo.Point, route []geo.Point) bool {
	for _, r := range route {
		dLat := p.Latitude - r.Latitude
		dLon := p.Longitude - r.Longitude
		if math.Sqrt(dLat*dLat+dLon*dLon) <= proximityDegrees {
			return true
		}
	}
	return false
}

// preferredSide compares the dot against the nearest point on the
// projected path: +1 places the label to the right, -1 to the left.
func preferredSide(dot mercator.Pixel, pixelPath []mercator.Pixel) float64 {
	if len(pixelPath) == 0 {
		return 1
	}
	nearest := pixelPath[0]
	best := math.Inf(1)
	for _, p := range pixelPath {
		if d := pixelDistance(dot, p); d < best {
			best = d
			nearest = p
		}
	}
	if dot.X >= nearest.X {
		return 1
	}
	return -1
}

// distanceToPolyline returns the minimum distance from a pixel point to a
// pixel-space polyline.
func distanceToPolyline(p mercator.Pixel, path []mercator.Pixel) float64 {
	if len(path) == 1 {
		return pixelDistance(p, path[0])
	}
	best := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		if d := distanceToSegment(p, path[i], path[i+1]); d < best {
			best = d
		}
	}
	return best
}

// distanceToSegment is plain 2D point-to-segment distance.
func distanceToSegment(p, a, b mercator.Pixel) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return pixelDistance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSq
	t = clamp(t, 0, 1)
	return pixelDistance(p, mercator.Pixel{X: a.X + t*dx, Y: a.Y + t*dy})
}

func pixelDistance(a, b mercator.Pixel) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncateName trims a display name to the label character budget,
// appending an ellipsis when anything was cut.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxNameLength {
		return name
	}
	return string(runes[:maxNameLength-1]) + "…"
}
