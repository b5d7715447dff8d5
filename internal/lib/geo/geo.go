package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// ErrInsufficientGeometry is returned when a computation needs coordinates
// that were not supplied (empty input, or fewer points than the math needs).
var ErrInsufficientGeometry = errors.New("insufficient geometry")

// Earth's mean radius in meters, spherical model
const earthRadius = 6371000

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using the
// Haversine formula. Symmetric, and zero iff both points coincide.
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}

	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0, nil
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c, nil
}

// PathLength sums great-circle distance over consecutive pairs.
// Zero or one point yields zero.
func (g *geoUtils) PathLength(points []Point) (float64, error) {
	total := 0.0
	for i := 1; i < len(points); i++ {
		d, err := g.PointToPoint(points[i-1], points[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// BoundingRegion computes the min/max extremes of a coordinate set, expands
// each axis by paddingFraction times its range on both sides, and recomputes
// the center from the padded extremes.
func (g *geoUtils) BoundingRegion(points []Point, paddingFraction float64) (Region, error) {
	if len(points) == 0 {
		return Region{}, ErrInsufficientGeometry
	}

	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLon, maxLon := points[0].Longitude, points[0].Longitude
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLon = math.Min(minLon, p.Longitude)
		maxLon = math.Max(maxLon, p.Longitude)
	}

	latPad := (maxLat - minLat) * paddingFraction
	lonPad := (maxLon - minLon) * paddingFraction
	minLat -= latPad
	maxLat += latPad
	minLon -= lonPad
	maxLon += lonPad

	return Region{
		MinLat:    minLat,
		MaxLat:    maxLat,
		MinLon:    minLon,
		MaxLon:    maxLon,
		CenterLat: (minLat + maxLat) / 2,
		CenterLon: (minLon + maxLon) / 2,
	}, nil
}

// Decimate down-samples a coordinate sequence for rendering efficiency.
// Sequences at or under maxPoints are returned unchanged; otherwise a stride
// of floor(len/maxPoints) points is skipped between kept samples, starting
// from index 0. Index-based, not endpoint-preserving: the final coordinate
// may be dropped.
//
// TODO: appending the final point when the stride skips it would avoid
// visually truncating rendered paths; callers currently rely on the
// documented index arithmetic, so the fix needs a coordinated change.
func (g *geoUtils) Decimate(points []Point, maxPoints int) []Point {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}

	stride := len(points) / maxPoints
	if stride < 1 {
		stride = 1
	}

	out := make([]Point, 0, len(points)/(stride+1)+1)
	for i := 0; i < len(points); i += stride + 1 {
		out = append(out, points[i])
	}
	return out
}

// PointToPolyline calculates minimum distance from a point to a coordinate
// sequence treated as a polyline.
func (g *geoUtils) PointToPolyline(point Point, path []Point) (float64, error) {
	if !isValidCoordinate(point) {
		return 0, errors.New("invalid point coordinates")
	}

	if len(path) == 0 {
		return 0, ErrInsufficientGeometry
	}

	if len(path) == 1 {
		return g.PointToPoint(point, path[0])
	}

	minDistance := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		distance := g.pointToSegmentDistance(point, path[i], path[i+1])
		if distance < minDistance {
			minDistance = distance
		}
	}
	return minDistance, nil
}

// pointToSegmentDistance calculates distance from a point to a line segment
// using the cross-track formula. Adequate for the sub-kilometer segments a
// walking route produces.
func (g *geoUtils) pointToSegmentDistance(point, segmentStart, segmentEnd Point) float64 {
	if segmentStart.Latitude == segmentEnd.Latitude && segmentStart.Longitude == segmentEnd.Longitude {
		distance, _ := g.PointToPoint(point, segmentStart)
		return distance
	}

	distanceToStart, _ := g.PointToPoint(point, segmentStart)
	distanceToEnd, _ := g.PointToPoint(point, segmentEnd)
	segmentLength, _ := g.PointToPoint(segmentStart, segmentEnd)

	if segmentLength < 1 {
		return math.Min(distanceToStart, distanceToEnd)
	}

	lat1 := segmentStart.Latitude * math.Pi / 180
	lon1 := segmentStart.Longitude * math.Pi / 180
	lat2 := segmentEnd.Latitude * math.Pi / 180
	lon2 := segmentEnd.Longitude * math.Pi / 180
	lat3 := point.Latitude * math.Pi / 180
	lon3 := point.Longitude * math.Pi / 180

	d13 := distanceToStart / earthRadius

	// Bearing start -> end
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearingSegment := math.Atan2(y, x)

	// Bearing start -> point
	y = math.Sin(lon3-lon1) * math.Cos(lat3)
	x = math.Cos(lat1)*math.Sin(lat3) - math.Sin(lat1)*math.Cos(lat3)*math.Cos(lon3-lon1)
	bearingPoint := math.Atan2(y, x)

	dxt := math.Asin(math.Sin(d13) * math.Sin(bearingPoint-bearingSegment))
	crossTrackDistance := math.Abs(dxt) * earthRadius

	// Projection beyond the segment end falls back to the endpoint distance
	dat := math.Acos(math.Cos(d13) / math.Cos(dxt))
	if dat*earthRadius > segmentLength {
		return distanceToEnd
	}

	return crossTrackDistance
}

// DecodePolyline decodes an encoded polyline string to a point sequence
func (g *geoUtils) DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}
		if !isValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}
	return points, nil
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
