package main

import (
	"go/build/constraint"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/spincube/engine/config"
)

// Mage targets are a main package without a main func; regular builds
// must skip every file of it.
func TestMagefilesRequireMageTag(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("magefiles", "*.go"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no magefiles found")
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		first, _, _ := strings.Cut(string(data), "\n")
		expr, err := constraint.Parse(first)
		if err != nil {
			t.Errorf("%s: no build constraint on the first line", file)
			continue
		}
		if expr.Eval(func(tag string) bool { return false }) {
			t.Errorf("%s is built without the mage tag", file)
		}
		if !expr.Eval(func(tag string) bool { return tag == "mage" }) {
			t.Errorf("%s is not built with the mage tag", file)
		}
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join("assets", "spincube.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer != *config.DefaultRenderer() {
		t.Errorf("sample renderer section drifted from the defaults:\n%+v\n%+v", cfg.Renderer, *config.DefaultRenderer())
	}
}
