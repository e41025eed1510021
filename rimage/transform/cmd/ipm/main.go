// Package main warps camera images onto the ground plane z=0 of the world frame.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/birdseye/config"
	"go.viam.com/birdseye/logging"
)

const (
	// Flags.
	flagWidth      = "wm"
	flagHeight     = "hm"
	flagResolution = "r"
	flagBatch      = "batch"
	flagOutput     = "output"
	flagCC         = "cc"
	flagMatrices   = "v"
	flagWorkers    = "workers"
	flagConfig     = "config"
	flagDebug      = "debug"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(os.Stdout, nil).RunContext(ctx, os.Args); err != nil {
		logging.NewLogger("ipm").Fatal(err)
	}
}

// newApp builds the command. A nil logger is replaced by a stdout logger once flags are parsed.
func newApp(out io.Writer, logger logging.Logger) *cli.App {
	return &cli.App{
		Name:      "ipm",
		Usage:     "warps camera images to the plane z=0 in the world frame",
		ArgsUsage: "CAM IMG [CAM IMG...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  flagWidth,
				Value: config.DefaultWidthM,
				Usage: "output image width in [m]",
			},
			&cli.Float64Flag{
				Name:  flagHeight,
				Value: config.DefaultHeightM,
				Usage: "output image height in [m]",
			},
			&cli.Float64Flag{
				Name:  flagResolution,
				Value: config.DefaultResolution,
				Usage: "output image resolution in [px/m]",
			},
			&cli.BoolFlag{
				Name:  flagBatch,
				Usage: "process folders of images instead of single images",
			},
			&cli.StringFlag{
				Name:  flagOutput,
				Value: config.DefaultOutputDir,
				Usage: "output directory to write transformed images to",
			},
			&cli.BoolFlag{
				Name:  flagCC,
				Usage: "use with color-coded images to enable nearest neighbor interpolation",
			},
			&cli.BoolFlag{
				Name:  flagMatrices,
				Usage: "only print homography matrices",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "frames warped in parallel, 0 for one per CPU",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load run configuration from `FILE`; flags and arguments override it",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case logger != nil:
			case c.Bool(flagDebug):
				logger = logging.NewDebugLogger("ipm")
			default:
				logger = logging.NewLogger("ipm")
			}
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				utils.UncheckedError(logger.Sync())
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromCLI(c, logger)
			if err != nil {
				return err
			}
			return run(c.Context, cfg, c.App.Writer, logger)
		},
	}
}

// configFromCLI reads the optional run configuration and applies flags and CAM IMG pairs on top.
func configFromCLI(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.NewDefault()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	}

	args := c.Args().Slice()
	if len(args)%2 != 0 {
		return nil, errors.Errorf("expected CAM IMG pairs, got %d arguments", len(args))
	}
	if len(args) > 0 {
		cfg.Cameras = nil
		for i := 0; i < len(args); i += 2 {
			cfg.Cameras = append(cfg.Cameras, config.CameraInput{Config: args[i], Images: args[i+1]})
		}
	}

	if c.IsSet(flagWidth) || cfg.ConfigFilePath == "" {
		cfg.Output.WidthM = c.Float64(flagWidth)
	}
	if c.IsSet(flagHeight) || cfg.ConfigFilePath == "" {
		cfg.Output.HeightM = c.Float64(flagHeight)
	}
	if c.IsSet(flagResolution) || cfg.ConfigFilePath == "" {
		cfg.Output.Resolution = c.Float64(flagResolution)
		cfg.Output.PxPerMRow, cfg.Output.PxPerMCol = 0, 0
	}
	if c.IsSet(flagOutput) || cfg.ConfigFilePath == "" {
		cfg.Output.Dir = c.String(flagOutput)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.Bool(flagCC) {
		cfg.Output.Interpolation = "nearest"
	}
	cfg.Batch = cfg.Batch || c.Bool(flagBatch)
	cfg.MatricesOnly = cfg.MatricesOnly || c.Bool(flagMatrices)
	cfg.Debug = c.Bool(flagDebug)

	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return cfg, nil
}
