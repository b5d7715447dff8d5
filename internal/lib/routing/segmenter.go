package routing

import (
	"errors"
	"fmt"
	"math"

	"github.com/strollmaps/walkbook/internal/lib/geo"
)

// ErrUpstreamDataMissing is returned when route geometry or steps required
// by the active policy are absent. Surfaced rather than producing an empty
// or misleading document.
var ErrUpstreamDataMissing = errors.New("upstream route data missing")

// Segmenter deterministically partitions a route into ordered segments.
type Segmenter struct {
	geoUtils geo.GeoUtils
}

// NewSegmenter creates a Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{geoUtils: geo.NewGeoUtils()}
}

// Split partitions the route under the configured policy. Candidate
// segments with fewer than 2 coordinates are dropped, except where the
// step-grouped policy synthesizes a two-point span. Indexes are assigned
// 1-based after dropping.
func (s *Segmenter) Split(route Route, opts SplitOptions) ([]Segment, error) {
	if len(route.Points) < 2 {
		return nil, fmt.Errorf("%w: route has %d coordinates", ErrUpstreamDataMissing, len(route.Points))
	}

	var (
		segments []Segment
		err      error
	)
	switch opts.Policy {
	case SplitByDistance:
		segments, err = s.splitByDistance(route, opts)
	case SplitByCount:
		segments, err = s.splitByCount(route, opts)
	case SplitBySteps:
		segments, err = s.splitBySteps(route, opts)
	default:
		return nil, fmt.Errorf("unknown split policy %d", opts.Policy)
	}
	if err != nil {
		return nil, err
	}

	for i := range segments {
		segments[i].Index = i + 1
	}
	return segments, nil
}

// chunk is an intermediate index range over the route's coordinates.
type chunk struct {
	startIdx int
	endIdx   int // inclusive
	distance float64
}

// splitByDistance walks the coordinate sequence accumulating great-circle
// distance and cuts just before a leg would push the running total past
// the target. The next segment starts on the shared boundary coordinate,
// so continuity holds by construction.
func (s *Segmenter) splitByDistance(route Route, opts SplitOptions) ([]Segment, error) {
	target := opts.TargetDistanceMeters
	if target <= 0 {
		return nil, fmt.Errorf("distance policy needs a positive target, got %f", target)
	}

	points := route.Points
	var chunks []chunk
	cur := chunk{startIdx: 0}
	acc := 0.0

	for i := 1; i < len(points); i++ {
		d, err := s.geoUtils.PointToPoint(points[i-1], points[i])
		if err != nil {
			return nil, fmt.Errorf("invalid route geometry at index %d: %w", i, err)
		}
		if acc > 0 && acc+d > target {
			cur.endIdx = i - 1
			cur.distance = acc
			chunks = append(chunks, cur)
			cur = chunk{startIdx: i - 1}
			acc = 0
		}
		acc += d
	}
	cur.endIdx = len(points) - 1
	cur.distance = acc
	if cur.endIdx > cur.startIdx {
		chunks = append(chunks, cur)
	}

	return s.buildSegments(route, chunks, opts, true)
}

// splitByCount divides the coordinate sequence into exactly N index ranges
// sharing boundary coordinates; the last range absorbs rounding remainder.
func (s *Segmenter) splitByCount(route Route, opts SplitOptions) ([]Segment, error) {
	n := opts.SegmentCount
	if n <= 0 {
		return nil, fmt.Errorf("count policy needs a positive segment count, got %d", n)
	}

	points := route.Points
	legs := len(points) - 1
	var chunks []chunk
	for i := 0; i < n; i++ {
		start := i * legs / n
		end := (i + 1) * legs / n
		if i == n-1 {
			end = legs
		}
		if end <= start {
			// Too few coordinates for this many segments; the
			// degenerate range is dropped rather than emitted.
			continue
		}
		d, err := s.geoUtils.PathLength(points[start : end+1])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk{startIdx: start, endIdx: end, distance: d})
	}

	return s.buildSegments(route, chunks, opts, false)
}

// splitBySteps groups StepsPerSegment navigation steps into each segment.
// Segment distance is the sum of the steps' own distances, and geometry is
// rebuilt from the steps' own geometry rather than from the route points.
func (s *Segmenter) splitBySteps(route Route, opts SplitOptions) ([]Segment, error) {
	perSegment := opts.StepsPerSegment
	if perSegment <= 0 {
		return nil, fmt.Errorf("steps policy needs a positive group size, got %d", perSegment)
	}

	// No steps at all: one segment spanning the whole route.
	if len(route.Steps) == 0 {
		total, err := s.geoUtils.PathLength(route.Points)
		if err != nil {
			return nil, err
		}
		region, err := s.geoUtils.BoundingRegion(route.Points, opts.PaddingFraction)
		if err != nil {
			return nil, err
		}
		return []Segment{{
			Points:          route.Points,
			Start:           route.Points[0],
			End:             route.Points[len(route.Points)-1],
			Region:          region,
			DistanceMeters:  total,
			DurationSeconds: route.DurationSeconds,
		}}, nil
	}

	var segments []Segment
	for first := 0; first < len(route.Steps); first += perSegment {
		last := first + perSegment - 1
		if last >= len(route.Steps) {
			last = len(route.Steps) - 1
		}
		group := route.Steps[first : last+1]

		var (
			points   []geo.Point
			distance float64
			duration float64
		)
		for _, step := range group {
			if len(step.Geometry) > 0 {
				points = append(points, step.Geometry...)
			} else {
				points = append(points, step.Location)
			}
			distance += step.DistanceMeters
			duration += step.DurationSeconds
		}
		points = dedupeConsecutive(points)

		// A group whose steps carry no usable geometry still gets a
		// two-point span between its first and last maneuver.
		if len(points) < 2 {
			points = []geo.Point{group[0].Location, group[len(group)-1].Location}
		}

		region, err := s.geoUtils.BoundingRegion(points, opts.PaddingFraction)
		if err != nil {
			return nil, err
		}

		segments = append(segments, Segment{
			Points:          points,
			Start:           points[0],
			End:             points[len(points)-1],
			Region:          region,
			DistanceMeters:  distance,
			DurationSeconds: duration,
			StepRange:       &StepRange{First: first, Last: last},
			Steps:           group,
		})
	}
	return segments, nil
}

// buildSegments materializes chunks into segments and assigns steps. With
// assignByLocation, each step maps to its nearest route coordinate index;
// otherwise steps are distributed evenly by count with the remainder going
// to the earliest segments.
func (s *Segmenter) buildSegments(route Route, chunks []chunk, opts SplitOptions, assignByLocation bool) ([]Segment, error) {
	segments := make([]Segment, 0, len(chunks))
	for _, c := range chunks {
		points := route.Points[c.startIdx : c.endIdx+1]
		region, err := s.geoUtils.BoundingRegion(points, opts.PaddingFraction)
		if err != nil {
			return nil, err
		}
		segments = append(segments, Segment{
			Points:         points,
			Start:          points[0],
			End:            points[len(points)-1],
			Region:         region,
			DistanceMeters: c.distance,
		})
	}

	if len(route.Steps) == 0 {
		// Coordinate-only segmentation; durations prorated by distance.
		s.prorateDurations(route, segments)
		return segments, nil
	}

	if assignByLocation {
		s.assignStepsByLocation(route, chunks, segments)
	} else {
		s.assignStepsByCount(route, segments)
	}

	for i := range segments {
		if len(segments[i].Steps) > 0 {
			duration := 0.0
			for _, step := range segments[i].Steps {
				duration += step.DurationSeconds
			}
			segments[i].DurationSeconds = duration
		}
	}
	s.prorateMissingDurations(route, segments)
	return segments, nil
}

// assignStepsByLocation maps each step's maneuver location to its nearest
// coordinate index and files the step under the chunk whose index range
// contains it. Steps that land in no range (possible after degenerate
// chunks are dropped) fall back to FindSegmentForCoordinate.
func (s *Segmenter) assignStepsByLocation(route Route, chunks []chunk, segments []Segment) {
	for stepIdx, step := range route.Steps {
		nearest := nearestPointIndex(step.Location, route.Points)

		target := -1
		for i, c := range chunks {
			if nearest >= c.startIdx && nearest <= c.endIdx {
				target = i
				break
			}
		}
		if target < 0 {
			target = s.FindSegmentForCoordinate(step.Location, segments)
		}
		if target < 0 {
			continue
		}
		appendStep(&segments[target], stepIdx, step)
	}
}

// assignStepsByCount spreads steps evenly across segments, earliest
// segments absorbing the remainder.
func (s *Segmenter) assignStepsByCount(route Route, segments []Segment) {
	if len(segments) == 0 {
		return
	}
	per := len(route.Steps) / len(segments)
	rem := len(route.Steps) % len(segments)

	next := 0
	for i := range segments {
		count := per
		if i < rem {
			count++
		}
		for j := 0; j < count && next < len(route.Steps); j++ {
			appendStep(&segments[i], next, route.Steps[next])
			next++
		}
	}
}

// FindSegmentForCoordinate picks the segment minimizing a degree-space
// score: Euclidean distance to the nearer of the segment's start and end
// coordinates, halved when the point lies inside the segment's bounding
// region. Ties resolve to the lowest-index segment. Returns -1 when no
// segments are given.
func (s *Segmenter) FindSegmentForCoordinate(point geo.Point, segments []Segment) int {
	best := -1
	bestScore := math.Inf(1)
	for i, seg := range segments {
		score := math.Min(degreeDistance(point, seg.Start), degreeDistance(point, seg.End))
		if seg.Region.Contains(point) {
			score *= 0.5
		}
		if score < bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// prorateDurations splits the route's total duration across segments in
// proportion to their distance share.
func (s *Segmenter) prorateDurations(route Route, segments []Segment) {
	total := 0.0
	for _, seg := range segments {
		total += seg.DistanceMeters
	}
	if total <= 0 || route.DurationSeconds <= 0 {
		return
	}
	for i := range segments {
		segments[i].DurationSeconds = route.DurationSeconds * segments[i].DistanceMeters / total
	}
}

// prorateMissingDurations fills durations for segments that ended up with
// no assigned steps.
func (s *Segmenter) prorateMissingDurations(route Route, segments []Segment) {
	total := 0.0
	for _, seg := range segments {
		total += seg.DistanceMeters
	}
	if total <= 0 || route.DurationSeconds <= 0 {
		return
	}
	for i := range segments {
		if segments[i].DurationSeconds == 0 {
			segments[i].DurationSeconds = route.DurationSeconds * segments[i].DistanceMeters / total
		}
	}
}

func appendStep(seg *Segment, stepIdx int, step Step) {
	seg.Steps = append(seg.Steps, step)
	if seg.StepRange == nil {
		seg.StepRange = &StepRange{First: stepIdx, Last: stepIdx}
		return
	}
	if stepIdx < seg.StepRange.First {
		seg.StepRange.First = stepIdx
	}
	if stepIdx > seg.StepRange.Last {
		seg.StepRange.Last = stepIdx
	}
}

// nearestPointIndex returns the index of the route coordinate closest to
// the point in degree space. Degree-space comparison is monotonic with
// haversine at walking-route scale and avoids trigonometry in a hot loop.
func nearestPointIndex(point geo.Point, points []geo.Point) int {
	best := 0
	bestScore := math.Inf(1)
	for i, p := range points {
		dLat := p.Latitude - point.Latitude
		dLon := p.Longitude - point.Longitude
		score := dLat*dLat + dLon*dLon
		if score < bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

func degreeDistance(a, b geo.Point) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// dedupeConsecutive removes immediately repeated coordinates, which show
// up where adjacent steps share a boundary point.
func dedupeConsecutive(points []geo.Point) []geo.Point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
