package voxcube

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrUnknownPhase = errors.New("unknown voxel phase")
	ErrInvalidMsaa  = errors.New("msaa must be 1 or 4")
)

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type WireframeConfig struct {
	Enabled bool `toml:"enabled"`
	Global  bool `toml:"global"`
}

// Config is the file form of the example program's settings.
type Config struct {
	Msaa            uint32          `toml:"msaa"`
	Phase           string          `toml:"phase"`
	ValidateShaders bool            `toml:"validate_shaders"`
	Debug           bool            `toml:"debug"`
	Stress          int             `toml:"stress"`
	Wireframe       WireframeConfig `toml:"wireframe"`
	Window          WindowConfig    `toml:"window"`
}

func DefaultConfig() Config {
	return Config{
		Msaa:  4,
		Phase: VoxelPhaseAlphaMask.String(),
		Wireframe: WireframeConfig{
			Enabled: true,
			Global:  true,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "voxcube",
		},
	}
}

// ParseConfig decodes TOML over DefaultConfig. Unknown keys are errors.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Msaa != 1 && c.Msaa != 4 {
		return fmt.Errorf("%d: %w", c.Msaa, ErrInvalidMsaa)
	}
	if _, err := ParseVoxelPhase(c.Phase); err != nil {
		return err
	}
	if c.Stress < 0 {
		return fmt.Errorf("stress must not be negative, got %d", c.Stress)
	}
	return nil
}

func ParseVoxelPhase(s string) (VoxelPhase, error) {
	switch s {
	case "alpha_mask", "":
		return VoxelPhaseAlphaMask, nil
	case "transparent":
		return VoxelPhaseTransparent, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownPhase)
}

// VoxelPhase returns the validated phase.
func (c Config) VoxelPhase() VoxelPhase {
	p, _ := ParseVoxelPhase(c.Phase)
	return p
}
