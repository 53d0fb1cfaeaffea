// Package main is the robustvision command line tool. It builds image pyramids and fits
// geometric models to point correspondences with RANSAC or LMedS.
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"go.viam.com/robustvision/logging"
)

const (
	flagDebug = "debug"

	flagInput  = "input"
	flagConfig = "config"
	flagOut    = "out"
	flagFormat = "format"

	flagPairs          = "pairs"
	flagModel          = "model"
	flagMethod         = "method"
	flagSeed           = "seed"
	flagIterations     = "iterations"
	flagThreshold      = "threshold"
	flagMaxMedian      = "max-median"
	flagInlierFraction = "inlier-fraction"
	flagRefine         = "refine"
	flagPlot           = "plot"
	flagBackground     = "background"
	flagHistogram      = "histogram"
)

func newApp(logger *logging.Logger) *cli.App {
	return &cli.App{
		Name:            "robustvision",
		Usage:           "build image pyramids and robustly fit models to point matches",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				*logger = logging.NewDebugLogger("robustvision")
			} else {
				*logger = logging.NewLogger("robustvision")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "pyramid",
				Usage:     "blur and subsample an image into a pyramid, writing one image per level",
				UsageText: "robustvision pyramid --input <image> --config <json> --out <dir>",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "image to build the pyramid from",
					},
					&cli.PathFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "pyramid configuration `FILE`",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "directory the levels are written to",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: "png",
						Usage: "level image format: png, jpg, bmp, tiff, ppm or qoi",
					},
				},
				Action: func(c *cli.Context) error {
					return PyramidAction(c, *logger)
				},
			},
			{
				Name:      "fit",
				Usage:     "fit a model to point pairs and report its inliers",
				UsageText: "robustvision fit --pairs <json> [--model affine|homography|fundamental] [--method ransac|lmeds]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagPairs,
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "JSON `FILE` holding an array of {src, dst} point pairs",
					},
					&cli.StringFlag{
						Name:  flagModel,
						Value: modelAffine,
						Usage: "model to fit: affine, homography or fundamental",
					},
					&cli.StringFlag{
						Name:  flagMethod,
						Value: methodRansac,
						Usage: "estimator: ransac or lmeds",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Value: 1,
						Usage: "seed for the sample generator",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Value: 500,
						Usage: "number of samples drawn",
					},
					&cli.Float64Flag{
						Name:  flagThreshold,
						Value: 4,
						Usage: "ransac inlier threshold on the squared residual",
					},
					&cli.Float64Flag{
						Name:  flagMaxMedian,
						Value: 4,
						Usage: "lmeds largest acceptable median squared residual",
					},
					&cli.Float64Flag{
						Name:  flagInlierFraction,
						Value: 0.5,
						Usage: "lmeds fraction of the pairs kept as inliers, 0 keeps all of them",
					},
					&cli.BoolFlag{
						Name:  flagRefine,
						Usage: "ransac refits the model to all inliers",
					},
					&cli.PathFlag{
						Name:  flagPlot,
						Usage: "write an image of the matches, inliers in green, to `FILE`",
					},
					&cli.PathFlag{
						Name:  flagBackground,
						Usage: "image drawn under the matches plot",
					},
					&cli.PathFlag{
						Name:  flagHistogram,
						Usage: "write a histogram of the residuals to `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					return FitAction(c, *logger)
				},
			},
		},
	}
}

func main() {
	logger := logging.NewLogger("robustvision")
	if err := newApp(&logger).Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
