// Package config loads application configuration from defaults, an
// optional YAML file, and WALKBOOK_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Services Services `mapstructure:"services"`
	Render   Render   `mapstructure:"render"`
	Split    Split    `mapstructure:"split"`
	Output   Output   `mapstructure:"output"`
	Logging  Logging  `mapstructure:"logging"`
}

// Services holds upstream endpoint URLs.
type Services struct {
	RoutingURL   string `mapstructure:"routing_url"`
	GeocodingURL string `mapstructure:"geocoding_url"`
	OverpassURL  string `mapstructure:"overpass_url"`

	// TileURLTemplate is a {z}/{x}/{y} raster tile template.
	TileURLTemplate string `mapstructure:"tile_url_template"`
}

// Render holds viewport geometry and rendering limits.
type Render struct {
	SegmentWidth      int     `mapstructure:"segment_width"`
	SegmentHeight     int     `mapstructure:"segment_height"`
	OverviewWidth     int     `mapstructure:"overview_width"`
	OverviewHeight    int     `mapstructure:"overview_height"`
	MaxSegmentPoints  int     `mapstructure:"max_segment_points"`
	MaxOverviewPoints int     `mapstructure:"max_overview_points"`
	MinZoom           int     `mapstructure:"min_zoom"`
	MaxZoom           int     `mapstructure:"max_zoom"`
	PaddingFraction   float64 `mapstructure:"padding_fraction"`
}

// Split selects the route segmentation policy and its parameters.
type Split struct {
	Policy               string  `mapstructure:"policy"`
	TargetDistanceMeters float64 `mapstructure:"target_distance_meters"`
	SegmentCount         int     `mapstructure:"segment_count"`
	StepsPerSegment      int     `mapstructure:"steps_per_segment"`
}

// Output holds document output settings.
type Output struct {
	Path    string `mapstructure:"path"`
	KMLPath string `mapstructure:"kml_path"`
	Title   string `mapstructure:"title"`
}

// Logging holds log settings.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("services.routing_url", "https://router.project-osrm.org")
	v.SetDefault("services.geocoding_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("services.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("services.tile_url_template", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("render.segment_width", 700)
	v.SetDefault("render.segment_height", 400)
	v.SetDefault("render.overview_width", 700)
	v.SetDefault("render.overview_height", 180)
	v.SetDefault("render.max_segment_points", 100)
	v.SetDefault("render.max_overview_points", 150)
	v.SetDefault("render.min_zoom", 12)
	v.SetDefault("render.max_zoom", 16)
	v.SetDefault("render.padding_fraction", 0.1)
	v.SetDefault("split.policy", "distance")
	v.SetDefault("split.target_distance_meters", 1000)
	v.SetDefault("split.segment_count", 4)
	v.SetDefault("split.steps_per_segment", 4)
	v.SetDefault("output.path", "walkbook.html")
	v.SetDefault("output.kml_path", "")
	v.SetDefault("output.title", "Walking Directions")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file (optional unless named explicitly)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("walkbook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: WALKBOOK_RENDER_MIN_ZOOM -> render.min_zoom
	v.SetEnvPrefix("WALKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Services.RoutingURL == "" {
		errs = append(errs, "services.routing_url is required")
	}
	if c.Services.OverpassURL == "" {
		errs = append(errs, "services.overpass_url is required")
	}
	if c.Services.TileURLTemplate == "" {
		errs = append(errs, "services.tile_url_template is required")
	} else if !strings.Contains(c.Services.TileURLTemplate, "{z}") {
		errs = append(errs, "services.tile_url_template must contain {z}, {x} and {y}")
	}
	if c.Render.SegmentWidth <= 0 || c.Render.SegmentHeight <= 0 {
		errs = append(errs, "render.segment_width and render.segment_height must be positive")
	}
	if c.Render.OverviewWidth <= 0 || c.Render.OverviewHeight <= 0 {
		errs = append(errs, "render.overview_width and render.overview_height must be positive")
	}
	if c.Render.MaxSegmentPoints <= 1 {
		errs = append(errs, "render.max_segment_points must be at least 2")
	}
	if c.Render.MinZoom < 1 || c.Render.MaxZoom > 19 || c.Render.MinZoom > c.Render.MaxZoom {
		errs = append(errs, fmt.Sprintf("render zoom clamp [%d, %d] is not a valid range", c.Render.MinZoom, c.Render.MaxZoom))
	}
	if c.Render.PaddingFraction < 0 || c.Render.PaddingFraction > 1 {
		errs = append(errs, fmt.Sprintf("render.padding_fraction must be in [0, 1], got %g", c.Render.PaddingFraction))
	}
	switch c.Split.Policy {
	case "distance":
		if c.Split.TargetDistanceMeters <= 0 {
			errs = append(errs, "split.target_distance_meters must be positive")
		}
	case "count":
		if c.Split.SegmentCount <= 0 {
			errs = append(errs, "split.segment_count must be positive")
		}
	case "steps":
		if c.Split.StepsPerSegment <= 0 {
			errs = append(errs, "split.steps_per_segment must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("split.policy must be distance, count or steps, got %q", c.Split.Policy))
	}
	if c.Output.Path == "" {
		errs = append(errs, "output.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
