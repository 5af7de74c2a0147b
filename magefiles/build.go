//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

var shaderSources = []string{"cube.vert", "cube.frag"}

type Build mg.Namespace

// Compiles the GLSL sources in assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		if err := compileShader(src); err != nil {
			return err
		}
	}
	return nil
}

// Builds the spincube binary into bin/.
func (Build) Binary() error {
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "spincube"), "."), withStream())
	return err
}

// Runs the unit tests.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
