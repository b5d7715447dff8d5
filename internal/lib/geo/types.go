package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Region is a padded bounding rectangle in latitude/longitude space.
// Center is always the midpoint of the padded extremes, not a centroid.
type Region struct {
	MinLat    float64 `json:"min_lat"`
	MaxLat    float64 `json:"max_lat"`
	MinLon    float64 `json:"min_lon"`
	MaxLon    float64 `json:"max_lon"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
}

// LatRange returns the latitude extent of the region in degrees.
func (r Region) LatRange() float64 {
	return r.MaxLat - r.MinLat
}

// LonRange returns the longitude extent of the region in degrees.
func (r Region) LonRange() float64 {
	return r.MaxLon - r.MinLon
}

// Contains reports whether the point lies within the region.
func (r Region) Contains(p Point) bool {
	return p.Latitude >= r.MinLat && p.Latitude <= r.MaxLat &&
		p.Longitude >= r.MinLon && p.Longitude <= r.MaxLon
}

// GeoUtils interface defines geographic calculation utilities
type GeoUtils interface {
	// Calculate great-circle distance between two points in meters
	PointToPoint(p1, p2 Point) (float64, error)

	// Sum of great-circle distances over consecutive pairs, in meters
	PathLength(points []Point) (float64, error)

	// Padded bounding region enclosing a non-empty coordinate set
	BoundingRegion(points []Point, paddingFraction float64) (Region, error)

	// Down-sample a coordinate sequence to roughly maxPoints entries
	Decimate(points []Point, maxPoints int) []Point

	// Minimum distance in meters from point to a coordinate sequence
	// treated as a polyline
	PointToPolyline(point Point, path []Point) (float64, error)

	// Decode an encoded polyline string to a point sequence
	DecodePolyline(encoded string) ([]Point, error)
}

// NewGeoUtils is implemented in geo.go
