package estimate

import (
	"math"

	"github.com/eaglearn/go-sense/pkg/calibration"
	"github.com/eaglearn/go-sense/pkg/media"
)

// DefaultSmoothingWindow is how many frames the gaze moving average spans.
const DefaultSmoothingWindow = 5

// directionThreshold is the offset from screen center beyond which gaze is
// classified off-center.
const directionThreshold = 0.15

// GazeEstimator estimates normalized gaze coordinates from a frame,
// optionally mapped through a calibration transform. It keeps a temporal
// smoothing history across calls and is not safe for concurrent use.
type GazeEstimator struct {
	smoothingWindow int
	history         [][2]float64
}

// NewGazeEstimator creates an estimator with the default smoothing window.
func NewGazeEstimator() *GazeEstimator {
	return &GazeEstimator{smoothingWindow: DefaultSmoothingWindow}
}

// Estimate returns the gaze estimate for one frame. With a nil matrix the
// raw estimate is used directly. A frame with no usable face signal yields
// the centered zero-confidence default.
func (e *GazeEstimator) Estimate(frame *media.Frame, m *calibration.Matrix) GazeResult {
	stats := analyzeFrame(frame)
	if !stats.hasSignal() {
		return DefaultGazeResult()
	}

	// The bright-mass centroid stands in for the tracked eye position.
	rawX := clamp01(stats.centroidX)
	rawY := clamp01(stats.centroidY)

	gazeX, gazeY := rawX, rawY
	if m != nil {
		gazeX, gazeY = m.Apply(rawX, rawY)
		gazeX = clamp01(gazeX)
		gazeY = clamp01(gazeY)
	}

	gazeX, gazeY = e.smooth(gazeX, gazeY)

	return GazeResult{
		GazeX:      gazeX,
		GazeY:      gazeY,
		Direction:  classifyDirection(gazeX, gazeY),
		Angle:      gazeAngle(gazeX, gazeY),
		RawGazeX:   rawX,
		RawGazeY:   rawY,
		Confidence: confidenceFromContrast(stats.stddev),
	}
}

// Reset clears the smoothing history.
func (e *GazeEstimator) Reset() {
	e.history = e.history[:0]
}

// smooth appends the sample to the history and returns the moving average.
func (e *GazeEstimator) smooth(x, y float64) (float64, float64) {
	e.history = append(e.history, [2]float64{x, y})
	if len(e.history) > e.smoothingWindow {
		e.history = e.history[1:]
	}

	var sx, sy float64
	for _, g := range e.history {
		sx += g[0]
		sy += g[1]
	}
	n := float64(len(e.history))
	return sx / n, sy / n
}

func classifyDirection(x, y float64) string {
	dx := x - 0.5
	dy := y - 0.5

	if math.Abs(dx) < directionThreshold && math.Abs(dy) < directionThreshold {
		return "center"
	}
	if math.Abs(dx) >= math.Abs(dy) {
		if dx < 0 {
			return "left"
		}
		return "right"
	}
	if dy < 0 {
		return "up"
	}
	return "down"
}

// gazeAngle returns the angle of the gaze offset from screen center,
// in degrees.
func gazeAngle(x, y float64) float64 {
	dx := x - 0.5
	dy := y - 0.5
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// confidenceFromContrast maps frame contrast onto [0, 1], saturating at a
// stddev of 64.
func confidenceFromContrast(stddev float64) float64 {
	return math.Min(stddev/64.0, 1.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
