package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/engine"
	"github.com/inamate/pixelkit/internal/pixel"
)

func TestLoad_Defaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(8080, cfg.Port)
	assert.Equal([]string{"http://localhost:5173", "http://localhost:3000"}, cfg.Origins())
	assert.Equal([]string{"localhost:5173", "localhost:3000"}, cfg.OriginHosts())

	def := engine.DefaultOptions()
	assert.Equal(def, cfg.EngineOptions(), "defaults match the engine's")
}

func TestLoad_Env(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("PORT", "9000")
	t.Setenv("SAMPLING", "bilinear")
	t.Setenv("SNAP_ANGLE", "45")
	t.Setenv("FILL_THRESHOLD", "3")
	t.Setenv("ALLOWED_ORIGINS", " https://pixel.example , ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(9000, cfg.Port)
	assert.Equal([]string{"pixel.example"}, cfg.OriginHosts())

	opts := cfg.EngineOptions()
	assert.Equal(pixel.BilinearFilter, opts.Transform.Filter)
	assert.Equal(45.0, opts.Transform.SnapAngle)
	assert.Equal(3, opts.Fill.Threshold)

	t.Setenv("PORT", "eighty")
	_, err = Load()
	assert.Error(err)
}
