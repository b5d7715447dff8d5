package labels

import (
	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
)

// Category classifies a point of interest. Parsed once from upstream tags;
// the document layer switches on the enum for icons, never on raw strings.
type Category int

const (
	CategoryMuseum Category = iota
	CategoryMonument
	CategoryViewpoint
	CategoryPark
	CategoryPlaceOfWorship
	CategoryCafe
	CategoryRestaurant
	CategoryShop
	CategoryAttraction
	CategoryOther
)

// IconKey returns the marker symbol identifier for the category.
func (c Category) IconKey() string {
	switch c {
	case CategoryMuseum:
		return "museum"
	case CategoryMonument:
		return "monument"
	case CategoryViewpoint:
		return "viewpoint"
	case CategoryPark:
		return "park"
	case CategoryPlaceOfWorship:
		return "worship"
	case CategoryCafe:
		return "cafe"
	case CategoryRestaurant:
		return "restaurant"
	case CategoryShop:
		return "shop"
	case CategoryAttraction:
		return "attraction"
	}
	return "poi"
}

// Weight orders categories for priority ranking; lower is more important.
func (c Category) Weight() int {
	switch c {
	case CategoryMuseum, CategoryMonument:
		return 0
	case CategoryViewpoint, CategoryAttraction:
		return 1
	case CategoryPark, CategoryPlaceOfWorship:
		return 2
	case CategoryCafe, CategoryRestaurant:
		return 3
	case CategoryShop:
		return 4
	}
	return 5
}

// CategoryFromTags maps OSM-style tags onto a Category. Anything
// unrecognized lands on CategoryOther.
func CategoryFromTags(tags map[string]string) Category {
	switch tags["tourism"] {
	case "museum":
		return CategoryMuseum
	case "viewpoint":
		return CategoryViewpoint
	case "attraction", "gallery":
		return CategoryAttraction
	}
	switch tags["historic"] {
	case "":
	default:
		return CategoryMonument
	}
	switch tags["amenity"] {
	case "cafe":
		return CategoryCafe
	case "restaurant", "fast_food":
		return CategoryRestaurant
	case "place_of_worship":
		return CategoryPlaceOfWorship
	}
	switch tags["leisure"] {
	case "park", "garden":
		return CategoryPark
	}
	if tags["shop"] != "" {
		return CategoryShop
	}
	return CategoryOther
}

// POI is a named point of interest. Immutable once fetched; PriorityRank is
// assigned upstream, lower is more important.
type POI struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Location     geo.Point `json:"location"`
	PriorityRank int       `json:"priority_rank"`
}

// Placement positions one POI's marker dot and label box in viewport pixel
// space. Ephemeral: recomputed per render and never persisted.
type Placement struct {
	// Anchor is the marker dot, clamped into the viewport.
	Anchor mercator.Pixel `json:"anchor"`
	// Box is the center of the label text box.
	Box mercator.Pixel `json:"box"`
	// DisplayName is the POI name truncated to the label character budget.
	DisplayName string `json:"display_name"`
	// IconKey identifies the marker symbol for the POI's category.
	IconKey string `json:"icon_key"`
	// POI is the source point of interest.
	POI POI `json:"poi"`
}
