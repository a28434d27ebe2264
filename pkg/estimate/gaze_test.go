package estimate

import (
	"image"
	"image/color"
	"testing"

	"github.com/eaglearn/go-sense/pkg/calibration"
	"github.com/eaglearn/go-sense/pkg/media"
)

// brightSpotFrame builds a black 100x100 frame with a white square
// centered at the given normalized position.
func brightSpotFrame(cx, cy float64) *media.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	x0 := int(cx*100) - 10
	y0 := int(cy*100) - 10
	for y := y0; y < y0+20; y++ {
		for x := x0; x < x0+20; x++ {
			if x >= 0 && x < 100 && y >= 0 && y < 100 {
				img.Set(x, y, color.White)
			}
		}
	}
	return &media.Frame{Image: img}
}

func flatFrame() *media.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	return &media.Frame{Image: img}
}

func TestGazeNoSignalDefault(t *testing.T) {
	got := NewGazeEstimator().Estimate(flatFrame(), nil)
	want := DefaultGazeResult()
	if got != want {
		t.Errorf("Estimate(flat) = %+v, want %+v", got, want)
	}
}

func TestGazeFollowsBrightMass(t *testing.T) {
	tests := []struct {
		name          string
		cx, cy        float64
		wantDirection string
	}{
		{"center", 0.5, 0.5, "center"},
		{"right", 0.8, 0.5, "right"},
		{"left", 0.2, 0.5, "left"},
		{"up", 0.5, 0.2, "up"},
		{"down", 0.5, 0.8, "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGazeEstimator().Estimate(brightSpotFrame(tt.cx, tt.cy), nil)
			if got.Direction != tt.wantDirection {
				t.Errorf("direction = %q, want %q (gaze %v, %v)", got.Direction, tt.wantDirection, got.GazeX, got.GazeY)
			}
			if got.Confidence <= 0 {
				t.Errorf("confidence = %v, want > 0", got.Confidence)
			}
		})
	}
}

func TestGazeCalibrationApplied(t *testing.T) {
	e := NewGazeEstimator()

	// A pure translation that pulls the off-center estimate back to
	// screen center.
	raw := e.Estimate(brightSpotFrame(0.8, 0.5), nil)
	shift := raw.RawGazeX - 0.5

	m := calibration.Matrix{
		{1, 0, -shift},
		{0, 1, 0},
		{0, 0, 1},
	}

	e.Reset()
	calibrated := e.Estimate(brightSpotFrame(0.8, 0.5), &m)
	if calibrated.Direction != "center" {
		t.Errorf("direction = %q, want center (gaze %v, %v)", calibrated.Direction, calibrated.GazeX, calibrated.GazeY)
	}
	if calibrated.RawGazeX != raw.RawGazeX {
		t.Errorf("raw gaze changed under calibration: %v vs %v", calibrated.RawGazeX, raw.RawGazeX)
	}
}

func TestGazeSmoothing(t *testing.T) {
	e := NewGazeEstimator()

	first := e.Estimate(brightSpotFrame(0.8, 0.5), nil)
	second := e.Estimate(brightSpotFrame(0.2, 0.5), nil)

	// The smoothed second estimate is pulled toward the first.
	if second.GazeX <= second.RawGazeX {
		t.Errorf("smoothed x = %v, want > raw %v", second.GazeX, second.RawGazeX)
	}
	if second.GazeX >= first.GazeX {
		t.Errorf("smoothed x = %v, want < previous %v", second.GazeX, first.GazeX)
	}
}

func TestGazeReset(t *testing.T) {
	e := NewGazeEstimator()
	e.Estimate(brightSpotFrame(0.8, 0.5), nil)
	e.Reset()

	got := e.Estimate(brightSpotFrame(0.2, 0.5), nil)
	// With no history the estimate equals the raw position.
	if got.GazeX != got.RawGazeX {
		t.Errorf("post-reset gaze x = %v, want raw %v", got.GazeX, got.RawGazeX)
	}
}

func TestClassifyDirection(t *testing.T) {
	tests := []struct {
		x, y float64
		want string
	}{
		{0.5, 0.5, "center"},
		{0.6, 0.55, "center"}, // inside the dead zone
		{0.9, 0.5, "right"},
		{0.1, 0.5, "left"},
		{0.5, 0.1, "up"},
		{0.5, 0.9, "down"},
	}

	for _, tt := range tests {
		if got := classifyDirection(tt.x, tt.y); got != tt.want {
			t.Errorf("classifyDirection(%v, %v) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
}
