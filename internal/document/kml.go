package document

import (
	"fmt"
	"image/color"
	"io"

	"github.com/twpayne/go-kml/v2"

	"github.com/strollmaps/walkbook/internal/lib/labels"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

// WriteKML exports the route and its segment boundaries as a KML document
// for loading into mapping tools alongside the printed directions.
func WriteKML(w io.Writer, title string, route *routing.Route, segments []routing.Segment, pois []labels.POI) error {
	doc := kml.Document(
		kml.Name(title),
		kml.SharedStyle("route",
			kml.LineStyle(
				kml.Color(color.RGBA{R: 0x1d, G: 0x4e, B: 0xd8, A: 0xbf}),
				kml.Width(4),
			),
		),
	)

	for _, seg := range segments {
		coords := make([]kml.Coordinate, len(seg.Points))
		for i, p := range seg.Points {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
		}
		doc.Add(kml.Placemark(
			kml.Name(fmt.Sprintf("Segment %d", seg.Index)),
			kml.Description(fmt.Sprintf("%s, about %s",
				FormatDistance(seg.DistanceMeters), FormatDuration(seg.DurationSeconds))),
			kml.StyleURL("#route"),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	if len(route.Points) > 0 {
		start := route.Points[0]
		end := route.Points[len(route.Points)-1]
		doc.Add(kml.Placemark(
			kml.Name("Start"),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: start.Longitude, Lat: start.Latitude})),
		))
		doc.Add(kml.Placemark(
			kml.Name("End"),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: end.Longitude, Lat: end.Latitude})),
		))
	}

	for _, poi := range pois {
		doc.Add(kml.Placemark(
			kml.Name(poi.Name),
			kml.Description(poi.Category.IconKey()),
			kml.Point(kml.Coordinates(kml.Coordinate{
				Lon: poi.Location.Longitude,
				Lat: poi.Location.Latitude,
			})),
		))
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write KML: %w", err)
	}
	return nil
}
