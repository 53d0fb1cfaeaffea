package transform

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	inlierColor  = colorful.Hsv(120, 1, 0.8)
	outlierColor = colorful.Hsv(0, 1, 1)
)

// PlotMatches draws every pair as a line from its source to its destination point over img,
// or over a white canvas of the given size when img is nil. Inliers, given by index into
// pairs, are drawn in green and the rest in red.
func PlotMatches(img image.Image, width, height int, pairs []PointPair, inliers []int) image.Image {
	if img != nil {
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	dc := gg.NewContext(width, height)
	if img != nil {
		dc.DrawImage(img, 0, 0)
	} else {
		dc.SetRGB(1, 1, 1)
		dc.Clear()
	}

	isInlier := make([]bool, len(pairs))
	for _, idx := range inliers {
		isInlier[idx] = true
	}

	dc.SetLineWidth(1)
	for i, p := range pairs {
		if isInlier[i] {
			dc.SetRGBA(inlierColor.R, inlierColor.G, inlierColor.B, 0.8)
		} else {
			dc.SetRGBA(outlierColor.R, outlierColor.G, outlierColor.B, 0.5)
		}
		dc.DrawLine(p.Src.X, p.Src.Y, p.Dst.X, p.Dst.Y)
		dc.Stroke()
		dc.DrawCircle(p.Src.X, p.Src.Y, 2)
		dc.Fill()
	}
	return dc.Image()
}
