package voxcube

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, cfg Config)
		wantErr error
	}{
		{
			name:  "empty keeps defaults",
			input: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "overrides",
			input: `
msaa = 1
phase = "transparent"
stress = 20
validate_shaders = true

[wireframe]
global = false

[window]
title = "ducks"
`,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, uint32(1), cfg.Msaa)
				assert.Equal(t, VoxelPhaseTransparent, cfg.VoxelPhase())
				assert.Equal(t, 20, cfg.Stress)
				assert.True(t, cfg.ValidateShaders)
				assert.True(t, cfg.Wireframe.Enabled, "unset keys keep defaults")
				assert.False(t, cfg.Wireframe.Global)
				assert.Equal(t, "ducks", cfg.Window.Title)
				assert.Equal(t, 1280, cfg.Window.Width)
			},
		},
		{name: "unknown phase", input: `phase = "opaque"`, wantErr: ErrUnknownPhase},
		{name: "bad msaa", input: `msaa = 2`, wantErr: ErrInvalidMsaa},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestParseConfig_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte(`samples = 4`))
	assert.Error(t, err)
}

func TestParseConfig_RejectsNegativeStress(t *testing.T) {
	_, err := ParseConfig([]byte(`stress = -1`))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcube.toml")
	require.NoError(t, os.WriteFile(path, []byte("debug = true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseVoxelPhase(t *testing.T) {
	p, err := ParseVoxelPhase("alpha_mask")
	require.NoError(t, err)
	assert.Equal(t, VoxelPhaseAlphaMask, p)

	p, err = ParseVoxelPhase(VoxelPhaseTransparent.String())
	require.NoError(t, err)
	assert.Equal(t, VoxelPhaseTransparent, p)
}
