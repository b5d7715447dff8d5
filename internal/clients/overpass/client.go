// Package overpass discovers named points of interest near a route segment
// by querying the Overpass API over OpenStreetMap data.
package overpass

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	overpassapi "github.com/serjvanilla/go-overpass"

	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/labels"
)

// Client queries Overpass for named POIs inside a bounding region.
type Client struct {
	client overpassapi.Client
}

// NewClient creates an Overpass client against the given endpoint.
func NewClient(endpoint string) *Client {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}
	return &Client{
		client: overpassapi.NewWithSettings(endpoint, 2, httpClient),
	}
}

// FindPOIs returns named points of interest inside the region, priority
// sorted: category weight first, then distance from the region center,
// with the OSM ID as a deterministic tiebreaker. PriorityRank reflects the
// final order.
func (c *Client) FindPOIs(ctx context.Context, region geo.Region) ([]labels.POI, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.client.Query(buildQuery(region))
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	pois := collectPOIs(&result)
	sortByPriority(pois, region)
	for i := range pois {
		pois[i].PriorityRank = i
	}
	return pois, nil
}

// buildQuery assembles an Overpass QL query for named tourism, historic,
// amenity and leisure features in the region's bounding box.
func buildQuery(region geo.Region) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", region.MinLat, region.MinLon, region.MaxLat, region.MaxLon)
	return fmt.Sprintf(`
		[out:json];
		(
			node["tourism"]["name"](%s);
			way["tourism"]["name"](%s);
			node["historic"]["name"](%s);
			way["historic"]["name"](%s);
			node["amenity"~"cafe|restaurant|fast_food|place_of_worship"]["name"](%s);
			way["amenity"~"cafe|restaurant|fast_food|place_of_worship"]["name"](%s);
			node["leisure"~"park|garden"]["name"](%s);
			way["leisure"~"park|garden"]["name"](%s);
		);
		out body;
		>;
		out skel qt;
	`, bbox, bbox, bbox, bbox, bbox, bbox, bbox, bbox)
}

// collectPOIs converts nodes and ways into POIs. Ways use the centroid of
// their member nodes as the representative location. Unnamed elements are
// skipped even if the query let one through.
func collectPOIs(result *overpassapi.Result) []labels.POI {
	var pois []labels.POI

	for _, node := range result.Nodes {
		name := node.Tags["name"]
		if name == "" {
			continue
		}
		pois = append(pois, labels.POI{
			ID:       node.ID,
			Name:     name,
			Category: labels.CategoryFromTags(node.Tags),
			Location: geo.Point{Latitude: node.Lat, Longitude: node.Lon},
		})
	}

	for _, way := range result.Ways {
		name := way.Tags["name"]
		if name == "" || len(way.Nodes) == 0 {
			continue
		}
		var lat, lon float64
		for _, node := range way.Nodes {
			lat += node.Lat
			lon += node.Lon
		}
		count := float64(len(way.Nodes))
		pois = append(pois, labels.POI{
			ID:       way.ID,
			Name:     name,
			Category: labels.CategoryFromTags(way.Tags),
			Location: geo.Point{Latitude: lat / count, Longitude: lon / count},
		})
	}

	return pois
}

func sortByPriority(pois []labels.POI, region geo.Region) {
	center := geo.Point{Latitude: region.CenterLat, Longitude: region.CenterLon}
	sort.Slice(pois, func(i, j int) bool {
		wi, wj := pois[i].Category.Weight(), pois[j].Category.Weight()
		if wi != wj {
			return wi < wj
		}
		di := degreeDistanceSq(pois[i].Location, center)
		dj := degreeDistanceSq(pois[j].Location, center)
		if di != dj {
			return di < dj
		}
		return pois[i].ID < pois[j].ID
	})
}

// degreeDistanceSq is squared distance in degree space. Only used for
// ordering, so the flat-earth approximation is fine at segment scale.
func degreeDistanceSq(a, b geo.Point) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return dLat*dLat + dLon*dLon
}
