//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the demo with the embedded shaders.
func (Run) Demo() error {
	fmt.Println("Run spincube...")
	_, err := executeCmd("go", withArgs("run", ".", "-vv"), withStream())
	return err
}

// Compiles the GLSL shaders and runs the demo against them.
func (Run) Precompiled() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run spincube with precompiled shaders...")
	_, err := executeCmd("go", withArgs("run", ".", "-vv", "--shader-dir", shaderDir), withStream())
	return err
}
