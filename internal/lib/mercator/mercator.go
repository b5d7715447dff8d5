// Package mercator implements Web-Mercator slippy-map tile math and the
// aspect-preserving geographic-to-pixel projection used to lay a route
// and its map tiles out in a fixed viewport.
package mercator

import (
	"math"
	"strconv"
	"strings"

	"github.com/strollmaps/walkbook/internal/lib/geo"
)

// Tile addresses one raster tile under the slippy-map scheme.
type Tile struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Zoom int `json:"zoom"`
}

// Pixel is a point in viewport pixel space. Y grows downward.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const tileSize = 256

// TileIndex returns the slippy-map tile containing the coordinate at the
// given zoom level.
func TileIndex(lat, lon float64, zoom int) (x, y int) {
	n := float64(int(1) << uint(zoom))
	x = int((lon + 180) / 360 * n)
	latRad := lat * math.Pi / 180
	y = int((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)
	return x, y
}

// TileBounds returns the geographic region covered by a tile, the inverse
// of TileIndex. Latitude comes back through the inverse-Mercator formula.
func TileBounds(t Tile) geo.Region {
	n := float64(int(1) << uint(t.Zoom))
	minLon := float64(t.X)/n*360 - 180
	maxLon := float64(t.X+1)/n*360 - 180
	maxLat := tileLat(float64(t.Y), n)
	minLat := tileLat(float64(t.Y+1), n)
	return geo.Region{
		MinLat:    minLat,
		MaxLat:    maxLat,
		MinLon:    minLon,
		MaxLon:    maxLon,
		CenterLat: (minLat + maxLat) / 2,
		CenterLon: (minLon + maxLon) / 2,
	}
}

func tileLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
}

// ChooseZoom picks the zoom level that fits the region into the viewport.
// The ideal zoom from the degrees-per-pixel requirement is rounded up and
// biased one level higher, trading oversampled tiles for crisp print
// output over blurry undersampling, then clamped to [minZoom, maxZoom].
func ChooseZoom(region geo.Region, viewportWidth, viewportHeight int, minZoom, maxZoom int) int {
	degPerPixelLat := region.LatRange() / float64(viewportHeight)
	degPerPixelLon := region.LonRange() / float64(viewportWidth)
	degPerPixel := math.Max(degPerPixelLat, degPerPixelLon)

	zoom := maxZoom
	if degPerPixel > 0 {
		ideal := math.Log2(360 / (tileSize * degPerPixel))
		zoom = int(math.Ceil(ideal)) + 1
	}

	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	return zoom
}

// AdjustForAspectRatio grows one axis of the region so its geographic
// aspect ratio (with longitude corrected by cos of the center latitude)
// matches the viewport, recentered on the original center. North stays up
// and the rendered path is never stretched.
func AdjustForAspectRatio(region geo.Region, viewportWidth, viewportHeight int) geo.Region {
	latRange := region.LatRange()
	lonRange := region.LonRange()
	if latRange <= 0 && lonRange <= 0 {
		return region
	}

	cosLat := math.Cos(region.CenterLat * math.Pi / 180)
	viewAspect := float64(viewportWidth) / float64(viewportHeight)
	correctedLon := lonRange * cosLat

	if correctedLon < latRange*viewAspect {
		// Latitude is the constraining axis; widen longitude to match.
		lonRange = latRange * viewAspect / cosLat
	} else {
		// Longitude constrains; grow latitude instead.
		latRange = correctedLon / viewAspect
	}

	return geo.Region{
		MinLat:    region.CenterLat - latRange/2,
		MaxLat:    region.CenterLat + latRange/2,
		MinLon:    region.CenterLon - lonRange/2,
		MaxLon:    region.CenterLon + lonRange/2,
		CenterLat: region.CenterLat,
		CenterLon: region.CenterLon,
	}
}

// Project linearly maps a coordinate into viewport pixel space using the
// adjusted region's extents: longitude onto [0,width], latitude onto
// [height,0]. A degenerate region maps everything to the viewport center.
func Project(p geo.Point, region geo.Region, width, height int) Pixel {
	latRange := region.LatRange()
	lonRange := region.LonRange()
	if latRange <= 0 || lonRange <= 0 {
		return Pixel{X: float64(width) / 2, Y: float64(height) / 2}
	}

	return Pixel{
		X: (p.Longitude - region.MinLon) / lonRange * float64(width),
		Y: float64(height) - (p.Latitude-region.MinLat)/latRange*float64(height),
	}
}

// ProjectPath projects a coordinate sequence into pixel space.
func ProjectPath(points []geo.Point, region geo.Region, width, height int) []Pixel {
	out := make([]Pixel, len(points))
	for i, p := range points {
		out[i] = Project(p, region, width, height)
	}
	return out
}

// TilesCovering enumerates every tile whose bounds intersect the region at
// the given zoom, row-major from the northwest corner.
func TilesCovering(region geo.Region, zoom int) []Tile {
	minX, minY := TileIndex(region.MaxLat, region.MinLon, zoom)
	maxX, maxY := TileIndex(region.MinLat, region.MaxLon, zoom)

	tiles := make([]Tile, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, Tile{X: x, Y: y, Zoom: zoom})
		}
	}
	return tiles
}

// ResolveURL substitutes a tile's indices into a {z}/{x}/{y} URL template.
func ResolveURL(template string, t Tile) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(t.Zoom),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(template)
}
