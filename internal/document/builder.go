// Package document turns rendered map views and route steps into the
// final printable HTML walking-directions document, plus an optional KML
// export of the same route.
package document

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/strollmaps/walkbook/internal/clients/tiles"
	"github.com/strollmaps/walkbook/internal/lib/mercator"
	"github.com/strollmaps/walkbook/internal/lib/render"
	"github.com/strollmaps/walkbook/internal/lib/routing"
)

// Section is one segment's content: its map view plus its instructions.
type Section struct {
	Index   int
	Caption string
	View    render.View
	Steps   []routing.Step

	DistanceMeters  float64
	DurationSeconds float64
}

// Document is everything that goes into the printable output.
type Document struct {
	Title       string
	GeneratedAt time.Time

	Overview render.View
	Sections []Section

	TotalDistanceMeters  float64
	TotalDurationSeconds float64

	// TileData maps tile references to raster bytes for inline embedding.
	// A missing tile renders as a blank cell rather than a broken image.
	TileData map[mercator.Tile][]byte
}

// Builder renders documents from a parsed template.
type Builder struct {
	tmpl *template.Template
}

// NewBuilder parses the document template.
func NewBuilder() (*Builder, error) {
	tmpl, err := template.New("walkbook").Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}
	return &Builder{tmpl: tmpl}, nil
}

// Build writes the complete HTML document.
func (b *Builder) Build(w io.Writer, doc Document) error {
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
	if err := b.tmpl.Execute(w, buildPage(doc)); err != nil {
		return fmt.Errorf("execute document template: %w", err)
	}
	return nil
}

// Template-facing models. Everything is precomputed here so the template
// itself stays pure layout.

type page struct {
	Title       string
	GeneratedAt string
	Distance    string
	Duration    string
	Overview    mapModel
	Sections    []sectionModel
}

type sectionModel struct {
	Index    int
	Caption  string
	Distance string
	Duration string
	Map      mapModel
	Steps    []stepModel
}

type stepModel struct {
	Icon     string
	Text     string
	Distance string
}

type mapModel struct {
	Width  int
	Height int
	Tiles  []tileImage
	// PathPoints is the SVG polyline points attribute for the route.
	PathPoints string
	Start      mercator.Pixel
	End        mercator.Pixel
	Labels     []labelModel
	Markers    []render.SegmentMarker
}

type tileImage struct {
	Src        string
	X, Y, W, H float64
}

type labelModel struct {
	Name string
	Dot  mercator.Pixel
	Box  mercator.Pixel
	Icon string
}

func buildPage(doc Document) page {
	p := page{
		Title:       doc.Title,
		GeneratedAt: doc.GeneratedAt.Format("January 2, 2006"),
		Distance:    FormatDistance(doc.TotalDistanceMeters),
		Duration:    FormatDuration(doc.TotalDurationSeconds),
		Overview:    buildMap(doc.Overview, doc.TileData),
	}
	for _, s := range doc.Sections {
		section := sectionModel{
			Index:    s.Index,
			Caption:  s.Caption,
			Distance: FormatDistance(s.DistanceMeters),
			Duration: FormatDuration(s.DurationSeconds),
			Map:      buildMap(s.View, doc.TileData),
		}
		for _, step := range s.Steps {
			section.Steps = append(section.Steps, stepModel{
				Icon:     step.Kind.IconKey(),
				Text:     step.Instruction(),
				Distance: FormatDistance(step.DistanceMeters),
			})
		}
		p.Sections = append(p.Sections, section)
	}
	return p
}

func buildMap(view render.View, tileData map[mercator.Tile][]byte) mapModel {
	m := mapModel{
		Width:      view.Width,
		Height:     view.Height,
		PathPoints: svgPoints(view.Path),
		Start:      view.Start,
		End:        view.End,
		Markers:    view.Markers,
	}
	for _, placement := range view.Tiles {
		raw, ok := tileData[placement.Tile]
		if !ok {
			continue
		}
		m.Tiles = append(m.Tiles, tileImage{
			Src: tiles.DataURI(raw),
			X:   placement.X,
			Y:   placement.Y,
			W:   placement.W,
			H:   placement.H,
		})
	}
	for _, l := range view.Labels {
		m.Labels = append(m.Labels, labelModel{
			Name: l.DisplayName,
			Dot:  l.Anchor,
			Box:  l.Box,
			Icon: l.IconKey,
		})
	}
	return m
}

// svgPoints renders a pixel path as an SVG polyline points attribute.
func svgPoints(path []mercator.Pixel) string {
	var sb strings.Builder
	for i, p := range path {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", p.X, p.Y)
	}
	return sb.String()
}

// FormatDistance renders meters as "950 m" below a kilometer and "1.2 km"
// above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as "8 min" below an hour and "1 h 05 min"
// above. Sub-minute durations round up so nothing reads as "0 min".
func FormatDuration(seconds float64) string {
	minutes := int((seconds + 59) / 60)
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d h %02d min", minutes/60, minutes%60)
}

const documentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; color: #222; margin: 2em auto; max-width: 760px; }
  h1 { font-size: 1.6em; margin-bottom: 0.1em; }
  .summary { color: #555; margin-bottom: 1.5em; }
  .map { position: relative; overflow: hidden; border: 1px solid #bbb; }
  .map img, .map svg, .marker, .poi-label, .poi-dot { position: absolute; }
  .map svg { left: 0; top: 0; }
  .marker { transform: translate(-50%, -50%); font-size: 11px; font-family: sans-serif;
            background: #fff; border: 1.5px solid #333; border-radius: 50%;
            width: 18px; height: 18px; text-align: center; line-height: 18px; }
  .marker.start { background: #2b7a3d; color: #fff; border-color: #2b7a3d; }
  .marker.end { background: #b5432a; color: #fff; border-color: #b5432a; }
  .poi-label { transform: translate(-50%, -50%); font-size: 10px; font-family: sans-serif;
               background: rgba(255,255,255,0.92); border: 1px solid #888;
               padding: 1px 4px; white-space: nowrap; }
  .poi-dot { transform: translate(-50%, -50%); width: 7px; height: 7px;
             background: #b5432a; border-radius: 50%; }
  .segment { page-break-inside: avoid; margin-top: 2em; }
  .segment h2 { font-size: 1.15em; margin-bottom: 0.2em; }
  .caption { color: #666; font-style: italic; margin: 0 0 0.6em; }
  ol.steps { margin: 0.8em 0 0; padding-left: 1.4em; }
  ol.steps li { margin: 0.25em 0; }
  .step-meta { color: #777; font-size: 0.85em; }
  .icon { display: inline-block; min-width: 5.5em; color: #444; font-size: 0.8em;
          font-family: sans-serif; text-transform: uppercase; letter-spacing: 0.04em; }
  @media print { body { margin: 0 auto; } .map, .segment { break-inside: avoid; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="summary">{{.Distance}} &middot; about {{.Duration}} &middot; generated {{.GeneratedAt}}</p>

{{block "mapview" .Overview}}
<div class="map" style="width:{{.Width}}px;height:{{.Height}}px">
  {{- range .Tiles}}
  <img src="{{.Src}}" style="left:{{printf "%.1f" .X}}px;top:{{printf "%.1f" .Y}}px;width:{{printf "%.1f" .W}}px;height:{{printf "%.1f" .H}}px" alt="">
  {{- end}}
  <svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
    <polyline points="{{.PathPoints}}" fill="none" stroke="#1d4ed8" stroke-width="4" stroke-opacity="0.75" stroke-linejoin="round" stroke-linecap="round"/>
    {{- range .Labels}}
    <line x1="{{printf "%.1f" .Dot.X}}" y1="{{printf "%.1f" .Dot.Y}}" x2="{{printf "%.1f" .Box.X}}" y2="{{printf "%.1f" .Box.Y}}" stroke="#888" stroke-width="1"/>
    {{- end}}
  </svg>
  {{- range .Labels}}
  <span class="poi-dot" style="left:{{printf "%.1f" .Dot.X}}px;top:{{printf "%.1f" .Dot.Y}}px"></span>
  <span class="poi-label" style="left:{{printf "%.1f" .Box.X}}px;top:{{printf "%.1f" .Box.Y}}px">{{.Name}}</span>
  {{- end}}
  {{- range .Markers}}
  <span class="marker" style="left:{{printf "%.1f" .At.X}}px;top:{{printf "%.1f" .At.Y}}px">{{.Index}}</span>
  {{- end}}
  <span class="marker start" style="left:{{printf "%.1f" .Start.X}}px;top:{{printf "%.1f" .Start.Y}}px">A</span>
  <span class="marker end" style="left:{{printf "%.1f" .End.X}}px;top:{{printf "%.1f" .End.Y}}px">B</span>
</div>
{{end}}

{{range .Sections}}
<div class="segment">
  <h2>Segment {{.Index}} <span class="step-meta">&mdash; {{.Distance}}, about {{.Duration}}</span></h2>
  {{- if .Caption}}
  <p class="caption">{{.Caption}}</p>
  {{- end}}
  {{template "mapview" .Map}}
  {{- if .Steps}}
  <ol class="steps">
    {{- range .Steps}}
    <li><span class="icon">{{.Icon}}</span> {{.Text}} <span class="step-meta">({{.Distance}})</span></li>
    {{- end}}
  </ol>
  {{- end}}
</div>
{{end}}
</body>
</html>
`
