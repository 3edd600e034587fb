// Package config reads pipeline descriptions from TOML and builds the composer they describe.
//
// A pipeline file lists the screen settings, the composer buffers and an ordered list of passes:
//
//	width = 800
//	height = 600
//	backend = "headless"
//
//	[composer]
//	frame_buffer_type = "half"
//
//	[[pass]]
//	kind = "render"
//
//	[[pass]]
//	kind = "effect"
//	  [[pass.effect]]
//	  kind = "bloom"
//	  params = { intensity = 1.5, blur = "kawase" }
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrUnknownBackend is returned for a backend other than wgpu or headless.
	ErrUnknownBackend = errors.New("config: unknown backend")

	// ErrUnknownPass is returned for an unsupported pass kind.
	ErrUnknownPass = errors.New("config: unknown pass kind")

	// ErrUnknownEffect is returned for an unsupported effect kind.
	ErrUnknownEffect = errors.New("config: unknown effect kind")

	// ErrInvalidValue is returned for a setting outside its domain.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is a decoded pipeline file.
type Config struct {
	Title      string         `toml:"title"`
	Width      int            `toml:"width"`
	Height     int            `toml:"height"`
	PixelRatio float32        `toml:"pixel_ratio"`
	Backend    string         `toml:"backend"`
	FrameLimit float64        `toml:"frame_limit"`
	Composer   ComposerConfig `toml:"composer"`
	Passes     []PassConfig   `toml:"pass"`
}

// ComposerConfig configures the ping-pong buffers.
type ComposerConfig struct {
	Multisampling   int    `toml:"multisampling"`
	FrameBufferType string `toml:"frame_buffer_type"`
	DepthBuffer     *bool  `toml:"depth_buffer"`
	StencilBuffer   bool   `toml:"stencil_buffer"`
}

// PassConfig describes one composer pass. Settings that do not apply to Kind are ignored.
type PassConfig struct {
	Kind           string         `toml:"kind"`
	Enabled        *bool          `toml:"enabled"`
	RenderToScreen bool           `toml:"render_to_screen"`
	ClearColor     []float32      `toml:"clear_color"`
	Inverted       bool           `toml:"inverted"`
	MaskRect       []float32      `toml:"mask_rect"` // x0, y0, x1, y1 in uv space
	Dithering      bool           `toml:"dithering"`
	EncodeOutput   bool           `toml:"encode_output"`
	Validate       bool           `toml:"validate"`
	Effects        []EffectConfig `toml:"effect"`
}

// EffectConfig describes one effect merged by an effect pass.
type EffectConfig struct {
	Kind    string         `toml:"kind"`
	Blend   string         `toml:"blend"`
	Opacity *float32       `toml:"opacity"`
	Shader  string         `toml:"shader"`
	Params  map[string]any `toml:"params"`
}

// Load reads and parses the pipeline file at path.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - *Config: the decoded configuration with defaults applied
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	common.Logger().Debug("pipeline loaded", "path", path, "passes", len(cfg.Passes))
	return cfg, nil
}

// Parse decodes a pipeline description. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - *Config: the decoded configuration with defaults applied
//   - error: an error if the document cannot be decoded or validated
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) && len(serr.Errors) > 0 {
			first := &serr.Errors[0]
			row, col := first.Position()
			return nil, fmt.Errorf("config: line %d column %d: unknown key %q", row, col, strings.Join(first.Key(), "."))
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Title = common.Coalesce(c.Title, "oxy-fx")
	c.Width = common.Coalesce(c.Width, 1280)
	c.Height = common.Coalesce(c.Height, 720)
	c.PixelRatio = common.Coalesce(c.PixelRatio, 1)
	c.Backend = strings.ToLower(common.Coalesce(c.Backend, "wgpu"))
	c.Composer.FrameBufferType = strings.ToLower(common.Coalesce(c.Composer.FrameBufferType, "ubyte"))
	for i := range c.Passes {
		c.Passes[i].Kind = strings.ToLower(c.Passes[i].Kind)
		for j := range c.Passes[i].Effects {
			c.Passes[i].Effects[j].Kind = strings.ToLower(c.Passes[i].Effects[j].Kind)
		}
	}
}

// Validate checks every setting that can be checked without building the pipeline.
//
// Returns:
//   - error: the first invalid setting
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidValue, c.Width, c.Height)
	}
	if c.PixelRatio <= 0 {
		return fmt.Errorf("%w: pixel_ratio %v", ErrInvalidValue, c.PixelRatio)
	}
	if _, err := c.BackendType(); err != nil {
		return err
	}
	if _, err := c.Composer.PixelType(); err != nil {
		return err
	}
	if c.Composer.Multisampling < 0 {
		return fmt.Errorf("%w: multisampling %d", ErrInvalidValue, c.Composer.Multisampling)
	}
	for i, p := range c.Passes {
		if _, ok := passBuilders[p.Kind]; !ok {
			return fmt.Errorf("config: pass %d: %w %q", i, ErrUnknownPass, p.Kind)
		}
		if n := len(p.ClearColor); n != 0 && n != 3 && n != 4 {
			return fmt.Errorf("config: pass %d: %w: clear_color needs 3 or 4 components", i, ErrInvalidValue)
		}
		if n := len(p.MaskRect); n != 0 && n != 4 {
			return fmt.Errorf("config: pass %d: %w: mask_rect needs 4 components", i, ErrInvalidValue)
		}
		for j, e := range p.Effects {
			if _, ok := effectBuilders[e.Kind]; !ok {
				return fmt.Errorf("config: pass %d effect %d: %w %q", i, j, ErrUnknownEffect, e.Kind)
			}
		}
	}
	return nil
}

// BackendType maps the backend name to a renderer backend.
//
// Returns:
//   - renderer.RendererBackendType: the backend
//   - error: ErrUnknownBackend for an unsupported name
func (c *Config) BackendType() (renderer.RendererBackendType, error) {
	switch c.Backend {
	case "wgpu":
		return renderer.BackendTypeWGPU, nil
	case "headless":
		return renderer.BackendTypeHeadless, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
}

// PixelType maps the frame buffer type name to a pixel type.
//
// Returns:
//   - common.PixelType: the pixel type
//   - error: ErrInvalidValue for an unsupported name
func (c ComposerConfig) PixelType() (common.PixelType, error) {
	switch c.FrameBufferType {
	case "ubyte", "unsigned_byte":
		return common.PixelTypeUnsignedByte, nil
	case "half", "half_float":
		return common.PixelTypeHalfFloat, nil
	case "float":
		return common.PixelTypeFloat, nil
	}
	return 0, fmt.Errorf("%w: frame_buffer_type %q", ErrInvalidValue, c.FrameBufferType)
}
