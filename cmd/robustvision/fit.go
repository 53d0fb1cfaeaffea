package main

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/disintegration/imaging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/robustvision/fitting/lmeds"
	"go.viam.com/robustvision/fitting/modelset"
	"go.viam.com/robustvision/fitting/ransac"
	"go.viam.com/robustvision/logging"
	"go.viam.com/robustvision/rimage/transform"
	"go.viam.com/robustvision/sorting"
	rutils "go.viam.com/robustvision/utils"
)

const (
	modelAffine      = "affine"
	modelHomography  = "homography"
	modelFundamental = "fundamental"

	methodRansac = "ransac"
	methodLMedS  = "lmeds"
)

// fitOptions carries the estimator settings of a fit.
type fitOptions struct {
	Method         string
	Seed           int64
	Iterations     int
	Threshold      float64
	MaxMedian      float64
	InlierFraction float64
	Refine         bool
}

// fitResult is the outcome of a fit, independent of the model type.
type fitResult struct {
	OK         bool
	Model      string
	Inliers    []int
	Residuals  []float64
	Error      float64
	Iterations int
}

// FitAction is the corresponding action for 'fit'.
func FitAction(c *cli.Context, logger logging.Logger) error {
	pairs, err := transform.LoadPointPairs(c.Path(flagPairs))
	if err != nil {
		return err
	}
	opts := fitOptions{
		Method:         c.String(flagMethod),
		Seed:           c.Int64(flagSeed),
		Iterations:     c.Int(flagIterations),
		Threshold:      c.Float64(flagThreshold),
		MaxMedian:      c.Float64(flagMaxMedian),
		InlierFraction: c.Float64(flagInlierFraction),
		Refine:         c.Bool(flagRefine),
	}
	res, err := runFit(c.Context, pairs, c.String(flagModel), opts, logger)
	if err != nil {
		return err
	}
	printFit(c.App.Writer, res, len(pairs))

	if out := c.Path(flagPlot); out != "" {
		if err := savePlot(out, c.Path(flagBackground), pairs, res.Inliers); err != nil {
			return err
		}
	}
	if out := c.Path(flagHistogram); out != "" {
		if err := saveHistogram(out, res.Residuals); err != nil {
			return err
		}
	}
	if !res.OK {
		return errors.Errorf("%s could not fit a %s model", opts.Method, c.String(flagModel))
	}
	return nil
}

// runFit fits the named model to pairs with the estimator in opts.
func runFit(
	ctx context.Context,
	pairs []transform.PointPair,
	model string,
	opts fitOptions,
	logger logging.Logger,
) (*fitResult, error) {
	logger = logger.Sublogger(opts.Method).WithFields("model", model, "pairs", len(pairs))
	switch model {
	case modelAffine:
		res, m, err := fitPairs[transform.Affine2D](ctx, pairs,
			transform.AffineGenerator{}, &transform.AffineDistanceSq{}, transform.AffineLeastSquares{}, opts, logger)
		if err == nil {
			res.Model = fmt.Sprintf("x' = %.6g x + %.6g y + %.6g\ny' = %.6g x + %.6g y + %.6g",
				m.A, m.B, m.Tx, m.C, m.D, m.Ty)
		}
		return res, err
	case modelHomography:
		res, m, err := fitPairs[*transform.Homography](ctx, pairs,
			transform.HomographyGenerator{}, &transform.HomographyTransferErrorSq{}, transform.HomographyLeastSquares{},
			opts, logger)
		if err == nil && m != nil {
			res.Model = fmt.Sprintf("%.6g", mat.Formatted(m.Matrix()))
		}
		return res, err
	case modelFundamental:
		res, m, err := fitPairs[*mat.Dense](ctx, pairs,
			transform.FundamentalGenerator{}, &transform.SampsonDistance{}, transform.FundamentalLeastSquares{},
			opts, logger)
		if err == nil && m != nil {
			res.Model = fmt.Sprintf("%.6g", mat.Formatted(m))
		}
		return res, err
	default:
		return nil, errors.Errorf("unknown model %q, expected one of %s, %s or %s",
			model, modelAffine, modelHomography, modelFundamental)
	}
}

func fitPairs[M any](
	ctx context.Context,
	pairs []transform.PointPair,
	generator modelset.ModelGenerator[M, transform.PointPair],
	distance modelset.DistanceFromModel[M, transform.PointPair],
	refiner modelset.ModelFitter[M, transform.PointPair],
	opts fitOptions,
	logger logging.Logger,
) (*fitResult, M, error) {
	var zero M
	var matcher interface {
		modelset.ModelMatcher[M, transform.PointPair]
		Iterations() int
	}
	switch opts.Method {
	case methodRansac:
		r, err := ransac.New[M, transform.PointPair](ransac.Config{
			RandSeed:        opts.Seed,
			MaxIterations:   opts.Iterations,
			InlierThreshold: opts.Threshold,
		}, generator, distance, logger)
		if err != nil {
			return nil, zero, err
		}
		if opts.Refine {
			r.SetRefiner(refiner)
		}
		matcher = r
	case methodLMedS:
		lm, err := lmeds.New[M, transform.PointPair](lmeds.Config{
			RandSeed:       opts.Seed,
			TotalCycles:    opts.Iterations,
			MaxMedianError: opts.MaxMedian,
			InlierFraction: opts.InlierFraction,
		}, generator, distance, logger)
		if err != nil {
			return nil, zero, err
		}
		matcher = lm
	default:
		return nil, zero, errors.Errorf("unknown method %q, expected %s or %s", opts.Method, methodRansac, methodLMedS)
	}

	ok, err := matcher.Process(ctx, pairs)
	if err != nil {
		return nil, zero, err
	}
	res := &fitResult{
		OK:         ok,
		Error:      matcher.Error(),
		Iterations: matcher.Iterations(),
		Inliers:    lo.Times(len(matcher.MatchSet()), matcher.InputIndex),
	}
	if len(res.Inliers) > 0 {
		res.Residuals = make([]float64, len(pairs))
		modelset.ComputeResiduals(distance, matcher.Model(), pairs, res.Residuals)
	}
	return res, matcher.Model(), nil
}

// printFit writes the model and a summary table of the fit.
func printFit(w io.Writer, res *fitResult, numPairs int) {
	if res.Model != "" {
		fmt.Fprintln(w, res.Model)
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Success", "Pairs", "Inliers", "Iterations", "Error", "Median residual", "P90 residual"})
	median, p90 := "-", "-"
	if len(res.Inliers) > 0 {
		inlierResiduals := lo.Map(res.Inliers, func(idx, _ int) float64 { return res.Residuals[idx] })
		median = fmt.Sprintf("%.4g", medianOf(inlierResiduals))
		if v, err := stats.Percentile(inlierResiduals, 90); err == nil {
			p90 = fmt.Sprintf("%.4g", v)
		}
	}
	t.AppendRow(table.Row{
		res.OK, numPairs, len(res.Inliers), res.Iterations,
		fmt.Sprintf("%.4g", res.Error), median, p90,
	})
	fmt.Fprintln(w, t.Render())

	if finite := lo.Filter(res.Residuals, func(r float64, _ int) bool { return rutils.IsFinite(r) }); len(finite) > 1 {
		fmt.Fprintln(w, "residuals:")
		hist := histogram.Hist(10, finite)
		if err := histogram.Fprint(w, hist, histogram.Linear(40)); err != nil {
			fmt.Fprintln(w, err)
		}
	}
}

func medianOf(values []float64) float64 {
	return sorting.Median(append([]float64(nil), values...), len(values))
}

// savePlot draws the matches over the background image, or a canvas large enough to hold them.
func savePlot(out, background string, pairs []transform.PointPair, inliers []int) error {
	var bg image.Image
	width, height := 1, 1
	if background != "" {
		var err error
		if bg, err = imaging.Open(background); err != nil {
			return errors.Wrapf(err, "cannot read image %q", background)
		}
	} else {
		for _, p := range pairs {
			width = lo.Max([]int{width, int(p.Src.X) + 10, int(p.Dst.X) + 10})
			height = lo.Max([]int{height, int(p.Src.Y) + 10, int(p.Dst.Y) + 10})
		}
	}
	return writeImage(out, transform.PlotMatches(bg, width, height, pairs, inliers))
}

// saveHistogram plots the distribution of the finite residuals with gonum/plot.
func saveHistogram(out string, residuals []float64) error {
	values := plotter.Values(lo.Filter(residuals, func(r float64, _ int) bool { return rutils.IsFinite(r) }))
	if len(values) == 0 {
		return errors.New("no residuals to plot")
	}
	p := plot.New()
	p.Title.Text = "Residuals"
	p.X.Label.Text = "squared residual"
	p.Y.Label.Text = "pairs"
	hist, err := plotter.NewHist(values, 20)
	if err != nil {
		return errors.Wrap(err, "cannot bin residuals")
	}
	p.Add(hist)
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, out), "cannot write %q", out)
}
