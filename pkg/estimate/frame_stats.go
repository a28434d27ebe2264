package estimate

import (
	"image"
	"math"

	"github.com/eaglearn/go-sense/pkg/media"
)

// minContrast is the luminance standard deviation below which a frame is
// treated as carrying no face signal.
const minContrast = 8.0

// frameStats summarizes the luminance distribution of a frame: overall
// mean and deviation plus the intensity centroid, normalized to [0, 1].
type frameStats struct {
	mean      float64
	stddev    float64
	centroidX float64
	centroidY float64
}

// hasSignal reports whether the frame has enough structure to estimate
// anything from.
func (s frameStats) hasSignal() bool {
	return s.stddev >= minContrast
}

// analyzeFrame computes luminance statistics on a subsampled grid. The
// centroid of bright mass tracks the dominant (face) region well enough
// for the coarse heuristics in this package.
func analyzeFrame(f *media.Frame) frameStats {
	b := f.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return frameStats{centroidX: 0.5, centroidY: 0.5}
	}

	// Subsample at most ~128 points per axis.
	stepX := max(1, w/128)
	stepY := max(1, h/128)

	var sum, sumSq, weighted float64
	var wx, wy float64
	var n int

	gray, isGray := f.Image.(*image.Gray)

	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			var lum float64
			if isGray {
				lum = float64(gray.GrayAt(x, y).Y)
			} else {
				r, g, bl, _ := f.Image.At(x, y).RGBA()
				lum = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
			}

			sum += lum
			sumSq += lum * lum
			weighted += lum
			wx += lum * float64(x-b.Min.X)
			wy += lum * float64(y-b.Min.Y)
			n++
		}
	}

	if n == 0 {
		return frameStats{centroidX: 0.5, centroidY: 0.5}
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}

	stats := frameStats{
		mean:      mean,
		stddev:    math.Sqrt(variance),
		centroidX: 0.5,
		centroidY: 0.5,
	}
	if weighted > 0 {
		stats.centroidX = wx / weighted / float64(w)
		stats.centroidY = wy / weighted / float64(h)
	}
	return stats
}
