//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	dir    string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

func withDir(dir string) cmdOption {
	return func(o *cmdOptions) {
		o.dir = dir
	}
}

func withStream() cmdOption {
	return func(o *cmdOptions) {
		o.stream = true
	}
}

// executeCmd runs command and returns its combined output. Output is
// echoed to the terminal when streaming or when mage runs verbose.
func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	fmt.Printf("Executing: %s %s\n", command, strings.Join(opts.args, " "))
	cmd := exec.Command(command, opts.args...)
	cmd.Dir = opts.dir

	var out bytes.Buffer
	stream := mg.Verbose() || opts.stream
	if stream {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}
	if err := cmd.Run(); err != nil {
		if !stream {
			fmt.Println(out.String())
		}
		return "", fmt.Errorf("%s %s: %w", command, strings.Join(opts.args, " "), err)
	}
	return out.String(), nil
}

// compileShader turns one GLSL source in shaderDir into <src>.spv, the name
// the renderer's vertex_shader and fragment_shader settings expect.
func compileShader(src string) error {
	if _, err := os.Stat(filepath.Join(shaderDir, src)); err != nil {
		return fmt.Errorf("shader source %s: %w", src, err)
	}
	_, err := executeCmd("glslc", withArgs("--target-env=vulkan1.0", src, "-o", src+".spv"), withDir(shaderDir), withStream())
	return err
}
