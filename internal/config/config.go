// Package config loads the settings shared by the life commands from TOML
// or YAML files.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/life"
)

var (
	// ErrUnknownFormat is returned by Load for extensions other than
	// .toml, .yaml and .yml.
	ErrUnknownFormat = errors.New("config: unknown file format")

	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds grid, seeding, rendering and host settings.
type Config struct {
	Grid   Grid   `toml:"grid" yaml:"grid"`
	Seed   Seed   `toml:"seed" yaml:"seed"`
	Render Render `toml:"render" yaml:"render"`
	Window Window `toml:"window" yaml:"window"`

	// Backend names the device backend for headless runs. Empty selects
	// the first available one.
	Backend string `toml:"backend" yaml:"backend"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Grid is the simulation size in cells.
type Grid struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
}

// Seed selects the initial population. Pattern, when set, wins over the
// random fill.
type Seed struct {
	// Density is the probability that a cell starts alive.
	Density float64 `toml:"density" yaml:"density"`

	// Random seeds the generator. Zero draws a fresh seed on every run.
	Random uint64 `toml:"random" yaml:"random"`

	// Pattern is a plaintext pattern file placed at (OffsetX, OffsetY).
	Pattern string `toml:"pattern" yaml:"pattern"`
	OffsetX int    `toml:"offset_x" yaml:"offset_x"`
	OffsetY int    `toml:"offset_y" yaml:"offset_y"`
}

// Render configures the presentation kernel and the frame policy.
type Render struct {
	// Shader is a WGSL file replacing the built-in module.
	Shader string `toml:"shader" yaml:"shader"`

	// Alive and Dead are #rrggbb or #rrggbbaa colors.
	Alive string `toml:"alive" yaml:"alive"`
	Dead  string `toml:"dead" yaml:"dead"`

	// Skip is "render" or "frame".
	Skip string `toml:"skip" yaml:"skip"`

	WorkgroupSize uint32 `toml:"workgroup_size" yaml:"workgroup_size"`
}

// Window is the size of the cmd/life window in pixels.
type Window struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`
}

// Default returns the built-in configuration: a 512x256 grid, 80% alive.
func Default() Config {
	return Config{
		Grid: Grid{Width: 512, Height: 256},
		Seed: Seed{Density: life.DefaultDensity},
		Render: Render{
			Alive:         "#8cf28c",
			Dead:          "#0a0a10",
			Skip:          life.SkipRender.String(),
			WorkgroupSize: life.DefaultWorkgroupSize,
		},
		Window:   Window{Width: 1024, Height: 512, Title: "Game of Life"},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. The format follows the extension.
// Relative Pattern and Shader paths are resolved against the file's
// directory.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Seed.Pattern = resolve(dir, cfg.Seed.Pattern)
	cfg.Render.Shader = resolve(dir, cfg.Render.Shader)
	return cfg, cfg.Validate()
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Grid.Width <= 0 || c.Grid.Height <= 0:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalid, c.Grid.Width, c.Grid.Height)
	case c.Seed.Density < 0 || c.Seed.Density > 1:
		return fmt.Errorf("%w: density %g outside [0, 1]", ErrInvalid, c.Seed.Density)
	case c.Render.WorkgroupSize == 0:
		return fmt.Errorf("%w: workgroup size 0", ErrInvalid)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if _, err := ParseSkipPolicy(c.Render.Skip); err != nil {
		return err
	}
	if _, err := ParseColor(c.Render.Alive); err != nil {
		return err
	}
	if _, err := ParseColor(c.Render.Dead); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Size returns the grid size.
func (c Config) Size() life.Size {
	return life.Size{Width: c.Grid.Width, Height: c.Grid.Height}
}

// Options converts the configuration into simulation options, reading the
// shader and pattern files it names.
func (c Config) Options() ([]life.Option, error) {
	skip, err := ParseSkipPolicy(c.Render.Skip)
	if err != nil {
		return nil, err
	}
	alive, err := ParseColor(c.Render.Alive)
	if err != nil {
		return nil, err
	}
	dead, err := ParseColor(c.Render.Dead)
	if err != nil {
		return nil, err
	}

	opts := []life.Option{
		life.WithDensity(c.Seed.Density),
		life.WithColors(alive, dead),
		life.WithSkipPolicy(skip),
		life.WithWorkgroupSize(c.Render.WorkgroupSize),
	}
	if c.Seed.Random != 0 {
		opts = append(opts, life.WithRandomSeed(c.Seed.Random))
	}

	if c.Seed.Pattern != "" {
		text, err := os.ReadFile(c.Seed.Pattern)
		if err != nil {
			return nil, fmt.Errorf("config: pattern: %w", err)
		}
		points, err := life.ParsePattern(string(text))
		if err != nil {
			return nil, fmt.Errorf("config: pattern %s: %w", c.Seed.Pattern, err)
		}
		points = life.Translate(points, c.Seed.OffsetX, c.Seed.OffsetY)
		opts = append(opts, life.WithSeed(life.PatternSeed(points...)))
	}

	if c.Render.Shader != "" {
		src, err := os.ReadFile(c.Render.Shader)
		if err != nil {
			return nil, fmt.Errorf("config: shader: %w", err)
		}
		opts = append(opts, life.WithShaderSource(string(src)))
	}
	return opts, nil
}

// ParseSkipPolicy parses "render" or "frame". Empty means life.SkipRender.
func ParseSkipPolicy(s string) (life.SkipPolicy, error) {
	switch strings.ToLower(s) {
	case "", life.SkipRender.String():
		return life.SkipRender, nil
	case life.SkipFrame.String():
		return life.SkipFrame, nil
	}
	return life.SkipRender, fmt.Errorf("%w: skip policy %q", ErrInvalid, s)
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q", ErrInvalid, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
