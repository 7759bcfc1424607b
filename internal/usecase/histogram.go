package usecase

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

const histogramBins = 256

// Frames wider than this are downscaled before histogram computation to
// bound comparison cost on high-resolution video.
const maxCompareWidth = 256

// histogram is a min-max normalized intensity distribution.
type histogram [histogramBins]float64

// intensityHistogram converts a frame to a single-channel intensity
// representation and bins it into a normalized 256-bin histogram.
func intensityHistogram(img image.Image) histogram {
	if img.Bounds().Dx() > maxCompareWidth {
		img = resize.Resize(maxCompareWidth, 0, img, resize.Bilinear)
	}

	var h histogram
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			bin := int(lum) >> 8
			if bin >= histogramBins {
				bin = histogramBins - 1
			}
			h[bin]++
		}
	}

	h.normalize()
	return h
}

// normalize rescales bin counts into [0,1] (min-max normalization).
func (h *histogram) normalize() {
	lo, hi := h[0], h[0]
	for _, v := range h[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range h {
			h[i] = 0
		}
		return
	}
	for i := range h {
		h[i] = (h[i] - lo) / (hi - lo)
	}
}

// correlation is the standard histogram-correlation score between two
// distributions: 1 means identical, values can go negative for strongly
// anti-correlated histograms.
func correlation(a, b histogram) float64 {
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA := sumA / histogramBins
	meanB := sumB / histogramBins

	var cross, sqA, sqB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cross += da * db
		sqA += da * da
		sqB += db * db
	}

	denom := math.Sqrt(sqA * sqB)
	if denom < 1e-12 {
		// Both histograms are flat; treat as identical.
		return 1.0
	}
	return cross / denom
}

// dissimilarity is 1 minus correlation. Correlation lives in [-1,1], so the
// result can exceed 1; thresholds are validated to [0,1] and any score above
// the range simply always accepts.
func dissimilarity(a, b histogram) float64 {
	return 1 - correlation(a, b)
}
