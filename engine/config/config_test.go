package config

import (
	m "math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
	if got := cfg.Renderer.AngleStep; m.Abs(got-2*m.Pi/360) > 1e-12 {
		t.Fatalf("default angle step = %f", got)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Fatalf("default frames in flight = %d", cfg.Renderer.FramesInFlight)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Application.Name != "Spincube" {
		t.Fatalf("unexpected name %q", cfg.Application.Name)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spincube.toml")
	body := `
[application]
name = "demo"
width = 640

[renderer]
frames_in_flight = 3
clear_color = [0.0, 0.5, 1.0, 1.0]
vsync = false

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Application.Name != "demo" || cfg.Application.Width != 640 {
		t.Fatalf("application not decoded: %+v", cfg.Application)
	}
	// untouched keys keep their defaults
	if cfg.Application.Height != 720 || cfg.Renderer.Far != 100 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Renderer.FramesInFlight != 3 || cfg.Renderer.VSync {
		t.Fatalf("renderer not decoded: %+v", cfg.Renderer)
	}
	if cfg.Renderer.ClearColor != [4]float32{0, 0.5, 1, 1} {
		t.Fatalf("clear color = %v", cfg.Renderer.ClearColor)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[renderer\n", "decode"},
		{"too many frames", "[renderer]\nframes_in_flight = 4\n", "frames_in_flight"},
		{"zero frames", "[renderer]\nframes_in_flight = 0\n", "frames_in_flight"},
		{"zero axis", "[renderer]\nrotation_axis = [0.0, 0.0, 0.0]\n", "rotation_axis"},
		{"clip planes", "[renderer]\nnear = 5.0\nfar = 1.0\n", "near"},
		{"fov", "[renderer]\nfov_degrees = 180.0\n", "fov_degrees"},
		{"color", "[renderer]\nclear_color = [2.0, 0.0, 0.0, 1.0]\n", "clear_color"},
		{"negative step", "[renderer]\nangle_step = -0.1\n", "angle_step"},
		{"shader dir", "[renderer]\nshader_dir = \"shaders\"\nvertex_shader = \"\"\n", "shader_dir"},
		{"size", "[application]\nwidth = 0\n", "size"},
		{"eye at target", "[renderer]\neye = [0.0, 0.0, 0.0]\n", "eye"},
		{"eye above target", "[renderer]\neye = [0.0, 4.0, 0.0]\n", "up axis"},
		{"eye below target", "[renderer]\neye = [0.0, -2.0, 0.0]\n", "up axis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parsing marshalled defaults: %v", err)
	}
	if cfg.Renderer.Eye != Default().Renderer.Eye {
		t.Fatalf("eye changed: %v", cfg.Renderer.Eye)
	}
}
