// Package kpi aggregates per-cycle estimator outputs into productivity
// scores. The aggregator is total: zero-confidence inputs produce neutral
// 0.5 scores, never an error.
package kpi

import (
	"math"

	"github.com/eaglearn/go-sense/pkg/estimate"
)

// neutralScore is used when an input carries no usable signal.
const neutralScore = 0.5

// goodPostures are the classes that count as acceptable posture.
var goodPostures = map[string]bool{
	"neutral": true,
	"good":    true,
	"optimal": true,
}

// Metrics holds the aggregated productivity scores for one cycle.
// All scores are on a 0-1 scale; StressScore is inverted (higher = calmer).
type Metrics struct {
	FocusScore          float64 `json:"focus_score"`
	EngagementScore     float64 `json:"engagement_score"`
	StressScore         float64 `json:"stress_score"`
	PostureScore        float64 `json:"posture_score"`
	OverallProductivity float64 `json:"overall_productivity"`
}

// Map returns the metrics keyed the way stream payloads expect.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"focus_score":          m.FocusScore,
		"engagement_score":     m.EngagementScore,
		"stress_score":         m.StressScore,
		"posture_score":        m.PostureScore,
		"overall_productivity": m.OverallProductivity,
	}
}

// Calculator weighs the per-signal scores into an overall score.
type Calculator struct {
	FocusWeight      float64
	EngagementWeight float64
	StressWeight     float64
	PostureWeight    float64
}

// NewCalculator creates a calculator with the standard weights.
func NewCalculator() *Calculator {
	return &Calculator{
		FocusWeight:      0.35,
		EngagementWeight: 0.25,
		StressWeight:     0.20,
		PostureWeight:    0.20,
	}
}

// Calculate aggregates one cycle's estimator results.
func (c *Calculator) Calculate(gaze estimate.GazeResult, pose estimate.PoseResult, stress estimate.StressResult) Metrics {
	focus := focusScore(gaze)
	engagement := engagementScore(gaze, pose)
	stressScore := stressScore(stress)
	posture := postureScore(pose)

	overall := c.FocusWeight*focus +
		c.EngagementWeight*engagement +
		c.StressWeight*stressScore +
		c.PostureWeight*posture

	return Metrics{
		FocusScore:          focus,
		EngagementScore:     engagement,
		StressScore:         stressScore,
		PostureScore:        posture,
		OverallProductivity: overall,
	}
}

// focusScore rewards gaze near screen center. Distance of 0.5 (a screen
// corner) or more scores zero.
func focusScore(gaze estimate.GazeResult) float64 {
	if gaze.Confidence == 0 {
		return neutralScore
	}
	dx := gaze.GazeX - 0.5
	dy := gaze.GazeY - 0.5
	distance := math.Sqrt(dx*dx + dy*dy)
	return math.Max(0, 1-distance*2)
}

// engagementScore blends on-screen gaze with posture quality.
func engagementScore(gaze estimate.GazeResult, pose estimate.PoseResult) float64 {
	if gaze.Confidence == 0 && pose.Confidence == 0 {
		return neutralScore
	}

	gazeEngagement := neutralScore
	if gaze.Confidence > 0 {
		dx := gaze.GazeX - 0.5
		dy := gaze.GazeY - 0.5
		gazeEngagement = math.Max(0, 1-math.Sqrt(dx*dx+dy*dy)*2)
	}

	poseEngagement := neutralScore
	if pose.Confidence > 0 {
		if goodPostures[pose.Posture] {
			poseEngagement = 1.0
		} else {
			poseEngagement = 0.3
		}
	}

	return (gazeEngagement + poseEngagement) / 2.0
}

// stressScore inverts the stress level: lower stress scores higher.
func stressScore(stress estimate.StressResult) float64 {
	if stress.Confidence == 0 {
		return neutralScore
	}
	return 1.0 - stress.StressLevel
}

// postureScore scores the classified posture.
func postureScore(pose estimate.PoseResult) float64 {
	if pose.Confidence == 0 {
		return neutralScore
	}
	if goodPostures[pose.Posture] {
		return 1.0
	}
	return 0.0
}
