package main

import (
	"os"

	"github.com/spaghettifunk/spincube/engine"
	"github.com/spaghettifunk/spincube/engine/config"
	"github.com/spaghettifunk/spincube/engine/core"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "spincube"
	app.Usage = "render a rotating cube with vulkan"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "assets/spincube.toml",
			Usage: "path to the TOML configuration",
		},
		cli.StringFlag{
			Name:  "shader-dir",
			Usage: "load precompiled SPIR-V from this directory instead of the embedded shaders",
		},
		cli.BoolFlag{
			Name:  "validation",
			Usage: "enable the vulkan validation layers",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		core.LogFatal("%s", err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if dir := ctx.String("shader-dir"); dir != "" {
		cfg.Renderer.ShaderDir = dir
	}
	if ctx.Bool("validation") {
		cfg.Renderer.Validation = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(ctx, cfg)

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}
	return e.Run()
}

func setupLogging(ctx *cli.Context, cfg *config.Config) {
	level := cfg.Log.Level
	if ctx.Bool("v") {
		level = "info"
	}
	if ctx.Bool("vv") {
		level = "debug"
	}
	core.SetLogLevel(level)
}
