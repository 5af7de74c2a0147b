package config

import (
	"errors"
	"fmt"
	m "math"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Application struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	PosX   int32  `toml:"pos_x"`
	PosY   int32  `toml:"pos_y"`
}

// Renderer holds everything the frame renderer reads at Init.
type Renderer struct {
	ClearColor   [4]float32 `toml:"clear_color"`
	AngleStep    float64    `toml:"angle_step"`
	RotationAxis [3]float32 `toml:"rotation_axis"`
	FovDegrees   float32    `toml:"fov_degrees"`
	Near         float32    `toml:"near"`
	Far          float32    `toml:"far"`
	Eye          [3]float32 `toml:"eye"`

	FramesInFlight int  `toml:"frames_in_flight"`
	Validation     bool `toml:"validation"`
	VSync          bool `toml:"vsync"`

	// ShaderDir points at precompiled SPIR-V. Empty selects the embedded program.
	ShaderDir      string `toml:"shader_dir"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
}

type Log struct {
	Level string `toml:"level"`
}

type Config struct {
	Application Application `toml:"application"`
	Renderer    Renderer    `toml:"renderer"`
	Log         Log         `toml:"log"`
}

const (
	MinFramesInFlight = 1
	MaxFramesInFlight = 3
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Application: Application{
			Name:   "Spincube",
			Width:  1280,
			Height: 720,
			PosX:   100,
			PosY:   100,
		},
		Renderer: *DefaultRenderer(),
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultRenderer returns the renderer section of Default.
func DefaultRenderer() *Renderer {
	return &Renderer{
		ClearColor:     [4]float32{0.1, 0.1, 0.12, 1.0},
		AngleStep:      2 * m.Pi / 360,
		RotationAxis:   [3]float32{1, 1, 0},
		FovDegrees:     60,
		Near:           0.1,
		Far:            100,
		Eye:            [3]float32{0, 0, 3},
		FramesInFlight: 2,
		Validation:     false,
		VSync:          true,
		VertexShader:   "cube.vert.spv",
		FragmentShader: "cube.frag.spv",
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration back to TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("application size must be positive, got %dx%d", c.Application.Width, c.Application.Height)
	}
	return c.Renderer.Validate()
}

func (r *Renderer) Validate() error {
	if r.FramesInFlight < MinFramesInFlight || r.FramesInFlight > MaxFramesInFlight {
		return fmt.Errorf("frames_in_flight must be between %d and %d, got %d", MinFramesInFlight, MaxFramesInFlight, r.FramesInFlight)
	}
	if r.AngleStep < 0 || m.IsNaN(r.AngleStep) || m.IsInf(r.AngleStep, 0) {
		return fmt.Errorf("angle_step must be a finite non-negative number, got %f", r.AngleStep)
	}
	if r.RotationAxis == [3]float32{} {
		return errors.New("rotation_axis must not be the zero vector")
	}
	if r.FovDegrees <= 0 || r.FovDegrees >= 180 {
		return fmt.Errorf("fov_degrees must be in (0, 180), got %f", r.FovDegrees)
	}
	// The camera looks at the origin with +Y up, so the eye must be off the Y axis.
	if m.Hypot(float64(r.Eye[0]), float64(r.Eye[2])) < 1e-6 {
		if r.Eye[1] == 0 {
			return errors.New("eye must not coincide with the origin the camera looks at")
		}
		return fmt.Errorf("eye must not lie on the up axis, got %v", r.Eye)
	}
	if r.Near <= 0 || r.Far <= r.Near {
		return fmt.Errorf("clip planes must satisfy 0 < near < far, got near=%f far=%f", r.Near, r.Far)
	}
	for i, c := range r.ClearColor {
		if c < 0 || c > 1 {
			return fmt.Errorf("clear_color[%d] must be in [0, 1], got %f", i, c)
		}
	}
	if r.ShaderDir != "" && (r.VertexShader == "" || r.FragmentShader == "") {
		return errors.New("shader_dir requires both vertex_shader and fragment_shader")
	}
	return nil
}
