package shaders

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/spincube/engine/assets"
	"github.com/spaghettifunk/spincube/engine/assets/loaders"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/spaghettifunk/spincube/engine/renderer/metadata"
)

//go:embed wgsl/cube.wgsl
var cubeShaderWGSL string

const (
	// Entry points of WGSL programs.
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
	// Entry point of SPIR-V compiled from GLSL.
	GLSLEntryPoint = "main"
)

// CubeSource returns the embedded WGSL program.
func CubeSource() string {
	return cubeShaderWGSL
}

// Compile compiles WGSL source to SPIR-V words.
func Compile(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	return loaders.ParseSPIRV(spirvBytes)
}

// ProgramFromWGSL compiles one WGSL module that holds both vs_main and fs_main.
func ProgramFromWGSL(name, source string) (metadata.ShaderProgram, error) {
	code, err := Compile(source)
	if err != nil {
		return metadata.ShaderProgram{}, fmt.Errorf("shader %s: %w", name, err)
	}
	return metadata.ShaderProgram{
		Name: name,
		Vertex: metadata.ShaderModule{
			Stage:      metadata.ShaderStageVertex,
			EntryPoint: VertexEntryPoint,
			Code:       code,
		},
		Fragment: metadata.ShaderModule{
			Stage:      metadata.ShaderStageFragment,
			EntryPoint: FragmentEntryPoint,
			Code:       code,
		},
	}, nil
}

// CubeProgram compiles the embedded program.
func CubeProgram() (metadata.ShaderProgram, error) {
	return ProgramFromWGSL("cube", cubeShaderWGSL)
}

// LoadProgram picks the program described by cfg. With no shader directory the
// embedded WGSL is compiled. Otherwise the configured files are read from am:
// a .wgsl vertex file is compiled on its own, .spv files are used as they are.
func LoadProgram(am *assets.AssetManager, cfg *config.Renderer) (metadata.ShaderProgram, error) {
	if cfg.ShaderDir == "" || am == nil {
		return CubeProgram()
	}

	if strings.HasSuffix(cfg.VertexShader, ".wgsl") {
		res, err := am.LoadAsset(cfg.VertexShader)
		if err != nil {
			return metadata.ShaderProgram{}, err
		}
		defer am.UnloadAsset(res)
		return ProgramFromWGSL(strings.TrimSuffix(filepath.Base(cfg.VertexShader), ".wgsl"), res.Data.(string))
	}

	vert, err := loadModule(am, cfg.VertexShader, metadata.ShaderStageVertex)
	if err != nil {
		return metadata.ShaderProgram{}, err
	}
	frag, err := loadModule(am, cfg.FragmentShader, metadata.ShaderStageFragment)
	if err != nil {
		return metadata.ShaderProgram{}, err
	}
	core.LogDebug("loaded spir-v program %s + %s", cfg.VertexShader, cfg.FragmentShader)
	return metadata.ShaderProgram{
		Name:     strings.TrimSuffix(filepath.Base(cfg.VertexShader), filepath.Ext(cfg.VertexShader)),
		Vertex:   vert,
		Fragment: frag,
	}, nil
}

func loadModule(am *assets.AssetManager, name string, stage metadata.ShaderStage) (metadata.ShaderModule, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return metadata.ShaderModule{}, err
	}
	code, ok := res.Data.([]uint32)
	if !ok {
		return metadata.ShaderModule{}, fmt.Errorf("%s shader %s is not spir-v", stage, name)
	}
	return metadata.ShaderModule{
		Stage:      stage,
		EntryPoint: GLSLEntryPoint,
		Code:       code,
	}, nil
}
