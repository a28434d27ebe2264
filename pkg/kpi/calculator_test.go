package kpi

import (
	"math"
	"testing"

	"github.com/eaglearn/go-sense/pkg/estimate"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestCalculateNeutralOnZeroConfidence(t *testing.T) {
	got := NewCalculator().Calculate(
		estimate.DefaultGazeResult(),
		estimate.DefaultPoseResult(),
		estimate.StressResult{Category: "low"},
	)

	if got.FocusScore != 0.5 {
		t.Errorf("focus = %v, want 0.5", got.FocusScore)
	}
	if got.EngagementScore != 0.5 {
		t.Errorf("engagement = %v, want 0.5", got.EngagementScore)
	}
	if got.StressScore != 0.5 {
		t.Errorf("stress = %v, want 0.5", got.StressScore)
	}
	if got.PostureScore != 0.5 {
		t.Errorf("posture = %v, want 0.5", got.PostureScore)
	}
	if !almostEqual(got.OverallProductivity, 0.5) {
		t.Errorf("overall = %v, want 0.5", got.OverallProductivity)
	}
}

func TestCalculateIdealCycle(t *testing.T) {
	got := NewCalculator().Calculate(
		estimate.GazeResult{GazeX: 0.5, GazeY: 0.5, Confidence: 1},
		estimate.PoseResult{Posture: "good", Confidence: 1},
		estimate.StressResult{StressLevel: 0, Confidence: 1},
	)

	if got.FocusScore != 1 {
		t.Errorf("focus = %v, want 1", got.FocusScore)
	}
	if got.EngagementScore != 1 {
		t.Errorf("engagement = %v, want 1", got.EngagementScore)
	}
	if got.StressScore != 1 {
		t.Errorf("stress = %v, want 1", got.StressScore)
	}
	if got.PostureScore != 1 {
		t.Errorf("posture = %v, want 1", got.PostureScore)
	}
	if !almostEqual(got.OverallProductivity, 1) {
		t.Errorf("overall = %v, want 1", got.OverallProductivity)
	}
}

func TestFocusScoreDistance(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"center", 0.5, 0.5, 1},
		{"quarter off", 0.75, 0.5, 0.5},
		{"corner", 1, 1, 0}, // distance ~0.707, clamped at 0
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := focusScore(estimate.GazeResult{GazeX: tt.x, GazeY: tt.y, Confidence: 1})
			if !almostEqual(got, tt.want) {
				t.Errorf("focusScore(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestStressScoreInversion(t *testing.T) {
	got := stressScore(estimate.StressResult{StressLevel: 0.3, Confidence: 1})
	if !almostEqual(got, 0.7) {
		t.Errorf("stressScore(0.3) = %v, want 0.7", got)
	}
}

func TestPostureScore(t *testing.T) {
	tests := []struct {
		posture string
		want    float64
	}{
		{"good", 1},
		{"neutral", 1},
		{"optimal", 1},
		{"forward", 0},
		{"slouched", 0},
		{"unknown", 0},
	}

	for _, tt := range tests {
		got := postureScore(estimate.PoseResult{Posture: tt.posture, Confidence: 1})
		if got != tt.want {
			t.Errorf("postureScore(%q) = %v, want %v", tt.posture, got, tt.want)
		}
	}
}

func TestEngagementBlend(t *testing.T) {
	// Centered gaze with bad posture: (1 + 0.3) / 2.
	got := engagementScore(
		estimate.GazeResult{GazeX: 0.5, GazeY: 0.5, Confidence: 1},
		estimate.PoseResult{Posture: "slouched", Confidence: 1},
	)
	if !almostEqual(got, 0.65) {
		t.Errorf("engagement = %v, want 0.65", got)
	}
}

func TestOverallWeights(t *testing.T) {
	c := NewCalculator()
	got := c.Calculate(
		estimate.GazeResult{GazeX: 0.5, GazeY: 0.5, Confidence: 1}, // focus 1
		estimate.PoseResult{Posture: "slouched", Confidence: 1},    // posture 0
		estimate.StressResult{StressLevel: 0.4, Confidence: 1},     // stress 0.6
	)

	want := 0.35*1 + 0.25*got.EngagementScore + 0.20*0.6 + 0.20*0
	if !almostEqual(got.OverallProductivity, want) {
		t.Errorf("overall = %v, want %v", got.OverallProductivity, want)
	}
}

func TestDefaultWeights(t *testing.T) {
	c := NewCalculator()
	if c.FocusWeight != 0.35 || c.EngagementWeight != 0.25 || c.StressWeight != 0.20 || c.PostureWeight != 0.20 {
		t.Errorf("weights = %v/%v/%v/%v, want 0.35/0.25/0.20/0.20",
			c.FocusWeight, c.EngagementWeight, c.StressWeight, c.PostureWeight)
	}
	if sum := c.FocusWeight + c.EngagementWeight + c.StressWeight + c.PostureWeight; !almostEqual(sum, 1) {
		t.Errorf("weights sum = %v, want 1", sum)
	}
}

func TestMetricsMap(t *testing.T) {
	m := Metrics{FocusScore: 0.1, EngagementScore: 0.2, StressScore: 0.3, PostureScore: 0.4, OverallProductivity: 0.25}
	got := m.Map()

	want := map[string]float64{
		"focus_score":          0.1,
		"engagement_score":     0.2,
		"stress_score":         0.3,
		"posture_score":        0.4,
		"overall_productivity": 0.25,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Map()[%q] = %v, want %v", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		t.Errorf("Map() has %d keys, want %d", len(got), len(want))
	}
}
