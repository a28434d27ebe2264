package estimate

import (
	"math"

	"github.com/eaglearn/go-sense/pkg/media"
)

// PoseEstimator estimates head orientation and classifies posture. It
// keeps a posture voting history across calls and is not safe for
// concurrent use.
type PoseEstimator struct {
	votes []string
}

// NewPoseEstimator creates a pose estimator.
func NewPoseEstimator() *PoseEstimator {
	return &PoseEstimator{}
}

// Estimate returns the head pose for one frame. A frame with no usable
// face signal yields the "unknown" zero-confidence default.
func (e *PoseEstimator) Estimate(frame *media.Frame) PoseResult {
	stats := analyzeFrame(frame)
	if !stats.hasSignal() {
		return DefaultPoseResult()
	}

	// Centroid displacement from frame center as a coarse orientation
	// proxy: horizontal offset reads as yaw, vertical as pitch.
	yaw := (stats.centroidX - 0.5) * 90.0
	pitch := (stats.centroidY - 0.5) * 90.0
	roll := rollEstimate(frame)

	posture := e.votePosture(classifyPosture(yaw, pitch, roll))

	return PoseResult{
		Yaw:        yaw,
		Pitch:      pitch,
		Roll:       roll,
		Posture:    posture,
		Confidence: confidenceFromContrast(stats.stddev),
	}
}

// Reset clears the posture voting history.
func (e *PoseEstimator) Reset() {
	e.votes = e.votes[:0]
}

// votePosture smooths the classification over the last few frames so a
// single noisy frame cannot flip the posture.
func (e *PoseEstimator) votePosture(current string) string {
	e.votes = append(e.votes, current)
	if len(e.votes) > DefaultSmoothingWindow {
		e.votes = e.votes[1:]
	}

	counts := make(map[string]int, len(e.votes))
	best, bestCount := current, 0
	for _, v := range e.votes {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// classifyPosture buckets head angles into posture classes. Angles are
// in degrees.
func classifyPosture(yaw, pitch, roll float64) string {
	// Good posture: head relatively straight
	if math.Abs(yaw) < 15 && math.Abs(pitch) < 15 && math.Abs(roll) < 10 {
		return "good"
	}
	if pitch > 15 {
		return "forward"
	}
	if math.Abs(roll) > 10 {
		return "tilted"
	}
	if pitch < -15 {
		return "slouched"
	}
	return "good"
}

// rollEstimate derives roll from the brightness imbalance between the
// left and right halves of the frame.
func rollEstimate(frame *media.Frame) float64 {
	b := frame.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h == 0 {
		return 0
	}

	stepX := max(1, w/64)
	stepY := max(1, h/64)

	var left, right float64
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := frame.Image.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
			if x-b.Min.X < w/2 {
				left += lum
			} else {
				right += lum
			}
		}
	}

	total := left + right
	if total == 0 {
		return 0
	}
	// Imbalance of ±0.5 maps to ±30 degrees.
	return (right - left) / total * 60.0
}
