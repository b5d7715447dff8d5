package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://router.project-osrm.org", cfg.Services.RoutingURL)
	assert.Equal(t, 700, cfg.Render.SegmentWidth)
	assert.Equal(t, 12, cfg.Render.MinZoom)
	assert.Equal(t, 16, cfg.Render.MaxZoom)
	assert.Equal(t, "distance", cfg.Split.Policy)
	assert.Equal(t, 1000.0, cfg.Split.TargetDistanceMeters)
	assert.Equal(t, "walkbook.html", cfg.Output.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WALKBOOK_RENDER_MAX_ZOOM", "15")
	t.Setenv("WALKBOOK_SPLIT_POLICY", "count")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Render.MaxZoom)
	assert.Equal(t, "count", cfg.Split.Policy)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walkbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
split:
  policy: steps
  steps_per_segment: 6
output:
  title: Murphys Loop
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "steps", cfg.Split.Policy)
	assert.Equal(t, 6, cfg.Split.StepsPerSegment)
	assert.Equal(t, "Murphys Loop", cfg.Output.Title)
	// Untouched keys keep defaults
	assert.Equal(t, 400, cfg.Render.SegmentHeight)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Split.Policy = "spiral"
	cfg.Render.MinZoom = 17
	cfg.Services.TileURLTemplate = "https://tile.example.com/static.png"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "split.policy")
	assert.Contains(t, err.Error(), "zoom clamp")
	assert.Contains(t, err.Error(), "tile_url_template")
}

func TestValidate_PolicyParameters(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Split.Policy = "distance"
	cfg.Split.TargetDistanceMeters = 0
	assert.Error(t, cfg.Validate())

	cfg.Split.TargetDistanceMeters = 1500
	assert.NoError(t, cfg.Validate())

	cfg.Split.Policy = "count"
	cfg.Split.SegmentCount = -1
	assert.Error(t, cfg.Validate())
}
