package pyramid

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/robustvision/logging"
	"go.viam.com/robustvision/rimage"
)

// ConvolutionPyramid is a Pyramid whose levels are produced by a separable gaussian blur
// followed by subsampling. Each level is computed from the one above it using the incremental
// scale between them. It is not safe for concurrent use.
type ConvolutionPyramid[T rimage.Number] struct {
	Pyramid[T]

	cfg     Config
	kernel  *rimage.Kernel1D
	storage *rimage.Gray[float64]
	logger  logging.Logger
	// aliased is set while level 0 is the caller's image.
	aliased bool
}

// NewConvolutionPyramid validates cfg and returns a builder. Nothing is allocated for the levels
// until the first Update.
func NewConvolutionPyramid[T rimage.Number](cfg Config, logger logging.Logger) (*ConvolutionPyramid[T], error) {
	if err := cfg.Validate("pyramid"); err != nil {
		return nil, err
	}
	kernel, err := rimage.Gaussian1D(cfg.Sigma, cfg.Radius)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("pyramid")
	}
	scales := append([]float64(nil), cfg.ScaleFactors...)
	return &ConvolutionPyramid[T]{
		Pyramid: Pyramid[T]{scales: scales},
		cfg:     cfg,
		kernel:  kernel,
		storage: &rimage.Gray[float64]{},
		logger:  logger,
	}, nil
}

// Kernel returns the blur kernel applied between levels.
func (cp *ConvolutionPyramid[T]) Kernel() *rimage.Kernel1D {
	return cp.kernel
}

// Update rebuilds every level from original. When the first scale is 1 level 0 is either the
// input itself or a copy of it, depending on SaveOriginalReference. original must not be modified
// while a pyramid that references it is in use.
func (cp *ConvolutionPyramid[T]) Update(ctx context.Context, original *rimage.Gray[T]) error {
	if original == nil || original.Width == 0 || original.Height == 0 {
		return errors.New("pyramid input image is empty")
	}
	scales := cp.scales
	cp.initialize(original.Width, original.Height)

	if scales[0] == 1 && cp.cfg.SaveOriginalReference {
		cp.levels[0] = original
		cp.aliased = true
	} else {
		if cp.aliased || cp.levels[0] == nil {
			cp.levels[0] = &rimage.Gray[T]{}
			cp.aliased = false
		}
		if scales[0] == 1 {
			cp.levels[0].SetTo(original)
		} else if err := rimage.DownSampleNoBorder(
			ctx, cp.kernel, original, cp.levels[0], scales[0], cp.storage,
		); err != nil {
			return errors.Wrap(err, "cannot build pyramid level 0")
		}
	}

	for i := 1; i < len(scales); i++ {
		step := scales[i] / scales[i-1]
		if err := rimage.DownSampleNoBorder(ctx, cp.kernel, cp.levels[i-1], cp.levels[i], step, cp.storage); err != nil {
			return errors.Wrapf(err, "cannot build pyramid level %d", i)
		}
	}

	cp.logger.Debugw("pyramid updated",
		"levels", len(scales), "width", original.Width, "height", original.Height)
	return nil
}
