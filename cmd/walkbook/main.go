// Command walkbook turns a pair of coordinates into a printable HTML
// walking-directions document: a segmented route with embedded map
// graphics, turn-by-turn instructions and nearby points of interest.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/strollmaps/walkbook/internal/cache"
	"github.com/strollmaps/walkbook/internal/clients/nominatim"
	"github.com/strollmaps/walkbook/internal/clients/osrm"
	"github.com/strollmaps/walkbook/internal/clients/overpass"
	"github.com/strollmaps/walkbook/internal/clients/tiles"
	"github.com/strollmaps/walkbook/internal/config"
	"github.com/strollmaps/walkbook/internal/document"
	"github.com/strollmaps/walkbook/internal/lib/geo"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
	"github.com/strollmaps/walkbook/internal/lib/render"
	"github.com/strollmaps/walkbook/internal/lib/routing"
	"github.com/strollmaps/walkbook/internal/logging"
)

func main() {
	from := flag.String("from", "", "start coordinate as lat,lon (required)")
	to := flag.String("to", "", "destination coordinate as lat,lon (required)")
	output := flag.String("o", "", "output HTML path (overrides config; - for stdout)")
	kmlOutput := flag.String("kml", "", "also write a KML export to this path")
	configFile := flag.String("config", "", "config file path (optional)")
	policy := flag.String("policy", "", "split policy: distance, count or steps (overrides config)")
	title := flag.String("title", "", "document title (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *output != "" {
		cfg.Output.Path = *output
	}
	if *kmlOutput != "" {
		cfg.Output.KMLPath = *kmlOutput
	}
	if *policy != "" {
		cfg.Split.Policy = *policy
	}
	if *title != "" {
		cfg.Output.Title = *title
	}

	origin, err := parseCoordinate(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		os.Exit(2)
	}
	destination, err := parseCoordinate(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, origin, destination); err != nil {
		slog.Error("walkbook failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, origin, destination geo.Point) error {
	started := time.Now()

	// Route
	phase := time.Now()
	router := osrm.NewClient(cfg.Services.RoutingURL)
	route, err := router.FetchRoute(ctx, origin, destination)
	if err != nil {
		if errors.Is(err, routing.ErrUpstreamDataMissing) {
			return fmt.Errorf("no walking route between the given coordinates: %w", err)
		}
		return fmt.Errorf("fetch route: %w", err)
	}
	slog.Info("route fetched",
		"points", len(route.Points),
		"steps", len(route.Steps),
		"distance_m", int(route.DistanceMeters),
		"took", time.Since(phase))

	// Segment
	phase = time.Now()
	opts, err := splitOptions(cfg)
	if err != nil {
		return err
	}
	segmenter := routing.NewSegmenter()
	segments, err := segmenter.Split(*route, opts)
	if err != nil {
		return fmt.Errorf("split route: %w", err)
	}
	slog.Info("route segmented", "policy", cfg.Split.Policy, "segments", len(segments), "took", time.Since(phase))

	// Render
	phase = time.Now()
	renderer := render.NewRenderer(render.Options{
		SegmentWidth:      cfg.Render.SegmentWidth,
		SegmentHeight:     cfg.Render.SegmentHeight,
		OverviewWidth:     cfg.Render.OverviewWidth,
		OverviewHeight:    cfg.Render.OverviewHeight,
		MaxSegmentPoints:  cfg.Render.MaxSegmentPoints,
		MaxOverviewPoints: cfg.Render.MaxOverviewPoints,
		MinZoom:           cfg.Render.MinZoom,
		MaxZoom:           cfg.Render.MaxZoom,
		TileURLTemplate:   cfg.Services.TileURLTemplate,
		PaddingFraction:   cfg.Render.PaddingFraction,
	}, overpass.NewClient(cfg.Services.OverpassURL), slog.Default())

	views, err := renderer.RenderAll(ctx, route, segments)
	if err != nil {
		return fmt.Errorf("render views: %w", err)
	}
	slog.Info("views rendered", "views", len(views), "took", time.Since(phase))

	// Tiles
	phase = time.Now()
	fetcher := tiles.NewFetcher(cfg.Services.TileURLTemplate, cache.NewStore())
	var refs []mercator.Tile
	for _, view := range views {
		for _, placement := range view.Tiles {
			refs = append(refs, placement.Tile)
		}
	}
	tileData, err := fetcher.FetchAll(ctx, refs)
	if err != nil {
		return fmt.Errorf("fetch tiles: %w", err)
	}
	slog.Info("tiles fetched", "referenced", len(refs), "unique", len(tileData), "took", time.Since(phase))

	// Captions are decorative; a geocoder failure never fails the run.
	phase = time.Now()
	geocoder := nominatim.NewClient(cfg.Services.GeocodingURL)
	captions := make([]string, len(segments))
	for i, seg := range segments {
		caption, err := geocoder.ReverseGeocode(ctx, seg.Start)
		if err != nil || caption == "" {
			if err != nil {
				slog.Warn("reverse geocode failed", "segment", seg.Index, "error", err)
			}
			caption = fmt.Sprintf("%.5f, %.5f", seg.Start.Latitude, seg.Start.Longitude)
		}
		captions[i] = caption
	}
	slog.Info("captions resolved", "took", time.Since(phase))

	// Assemble
	doc := document.Document{
		Title:                cfg.Output.Title,
		Overview:             views[len(views)-1],
		TotalDistanceMeters:  route.DistanceMeters,
		TotalDurationSeconds: route.DurationSeconds,
		TileData:             tileData,
	}
	for i, seg := range segments {
		doc.Sections = append(doc.Sections, document.Section{
			Index:           seg.Index,
			Caption:         captions[i],
			View:            views[i],
			Steps:           seg.Steps,
			DistanceMeters:  seg.DistanceMeters,
			DurationSeconds: seg.DurationSeconds,
		})
	}

	builder, err := document.NewBuilder()
	if err != nil {
		return err
	}
	if err := writeOutput(cfg.Output.Path, func(w io.Writer) error {
		return builder.Build(w, doc)
	}); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	if cfg.Output.KMLPath != "" {
		if err := writeOutput(cfg.Output.KMLPath, func(w io.Writer) error {
			return document.WriteKML(w, cfg.Output.Title, route, segments, nil)
		}); err != nil {
			return fmt.Errorf("write KML: %w", err)
		}
	}

	slog.Info("document written", "path", cfg.Output.Path, "segments", len(segments), "total", time.Since(started))
	return nil
}

func splitOptions(cfg *config.Config) (routing.SplitOptions, error) {
	policy, err := routing.ParseSplitPolicy(cfg.Split.Policy)
	if err != nil {
		return routing.SplitOptions{}, err
	}
	return routing.SplitOptions{
		Policy:               policy,
		TargetDistanceMeters: cfg.Split.TargetDistanceMeters,
		SegmentCount:         cfg.Split.SegmentCount,
		StepsPerSegment:      cfg.Split.StepsPerSegment,
		PaddingFraction:      cfg.Render.PaddingFraction,
	}, nil
}

// parseCoordinate parses "lat,lon" with validation.
func parseCoordinate(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("want lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad longitude %q", parts[1])
	}
	return geo.NewPoint(lat, lon)
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
