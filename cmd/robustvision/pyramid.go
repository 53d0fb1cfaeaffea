package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/xfmoulet/qoi"
	"go.viam.com/utils"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"go.viam.com/robustvision/logging"
	"go.viam.com/robustvision/rimage"
	"go.viam.com/robustvision/rimage/pyramid"
)

// PyramidAction is the corresponding action for 'pyramid'.
func PyramidAction(c *cli.Context, logger logging.Logger) error {
	cfg, err := pyramid.LoadConfig(c.Path(flagConfig))
	if err != nil {
		return err
	}
	img, err := imaging.Open(c.Path(flagInput))
	if err != nil {
		return errors.Wrapf(err, "cannot read image %q", c.Path(flagInput))
	}

	pyr, err := buildPyramid(c.Context, img, *cfg, logger)
	if err != nil {
		return err
	}
	files, err := writeLevels(pyr, c.Path(flagOut), c.String(flagFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, pyramidTable(pyr, files))
	return nil
}

// buildPyramid converts img to gray and builds every level of cfg from it.
func buildPyramid(
	ctx context.Context,
	img image.Image,
	cfg pyramid.Config,
	logger logging.Logger,
) (*pyramid.ConvolutionPyramid[uint8], error) {
	pyr, err := pyramid.NewConvolutionPyramid[uint8](cfg, logger.Sublogger("pyramid"))
	if err != nil {
		return nil, err
	}
	if err := pyr.Update(ctx, rimage.GrayFromImage(img)); err != nil {
		return nil, err
	}
	return pyr, nil
}

// writeLevels saves every level as level_<i>.<format> in dir and returns the file names.
func writeLevels(pyr *pyramid.ConvolutionPyramid[uint8], dir, format string) ([]string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "png", "jpg", "jpeg", "bmp", "tif", "tiff", "ppm", "qoi":
	default:
		return nil, errors.Errorf("unsupported image format %q", format)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create output directory %q", dir)
	}

	files := make([]string, 0, pyr.NumLevels())
	for i := 0; i < pyr.NumLevels(); i++ {
		name := filepath.Join(dir, fmt.Sprintf("level_%d.%s", i, format))
		if err := writeImage(name, rimage.ToStdGray(pyr.Level(i))); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}

// encoders covers the formats imaging cannot write. TIFF levels are deflate compressed.
var encoders = map[string]func(w io.Writer, img image.Image) error{
	".bmp":  bmp.Encode,
	".ppm":  encodePPM,
	".qoi":  qoi.Encode,
	".tif":  encodeTIFF,
	".tiff": encodeTIFF,
}

// encodePPM converts to RGBA first since the ppm writer only accepts that color model.
func encodePPM(w io.Writer, img image.Image) error {
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return ppm.Encode(w, rgba)
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

// writeImage encodes img by the extension of name.
func writeImage(name string, img image.Image) error {
	encode, ok := encoders[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return errors.Wrapf(imaging.Save(img, name), "cannot write %q", name)
	}

	//nolint:gosec
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", name)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return errors.Wrapf(encode(f, img), "cannot write %q", name)
}

// pyramidTable renders one row per level.
func pyramidTable(pyr *pyramid.ConvolutionPyramid[uint8], files []string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Level", "Scale", "Width", "Height", "File"})
	for i := 0; i < pyr.NumLevels(); i++ {
		file := ""
		if i < len(files) {
			file = files[i]
		}
		level := pyr.Level(i)
		t.AppendRow(table.Row{i, fmt.Sprintf("%.3f", pyr.Scale(i)), level.Width, level.Height, file})
	}
	return t.Render()
}
