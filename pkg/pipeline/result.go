package pipeline

import (
	"time"

	"github.com/eaglearn/go-sense/pkg/estimate"
	"github.com/eaglearn/go-sense/pkg/kpi"
	"github.com/eaglearn/go-sense/pkg/protocol"
)

// Telemetry is the runtime metadata collected for one cycle. It is built
// once the cycle finishes and never mutated afterwards.
type Telemetry struct {
	Timestamp   time.Time          `json:"timestamp"`
	FrameID     string             `json:"frame_id"`
	AudioID     string             `json:"audio_id"`
	LatenciesMs map[string]float64 `json:"latencies_ms"`
}

// CycleResult is everything one cycle produced. Ownership transfers to the
// caller when RunCycle returns.
type CycleResult struct {
	Telemetry        Telemetry
	Gaze             estimate.GazeResult
	Pose             estimate.PoseResult
	Stress           estimate.StressResult
	Metrics          kpi.Metrics
	Payloads         map[string]interface{}
	OutboundMessages []*protocol.Message
	RollingSummary   map[string]float64
}

// GazeRecord is the persistence payload for one gaze sample.
type GazeRecord struct {
	SessionID  string  `json:"session_id,omitempty"`
	FrameID    string  `json:"frame_id"`
	Timestamp  string  `json:"timestamp"`
	GazeX      float64 `json:"gaze_x"`
	GazeY      float64 `json:"gaze_y"`
	Direction  string  `json:"gaze_direction"`
	Angle      float64 `json:"gaze_angle"`
	Confidence float64 `json:"confidence"`
}

// PoseRecord is the persistence payload for one head-pose sample.
type PoseRecord struct {
	SessionID  string  `json:"session_id,omitempty"`
	FrameID    string  `json:"frame_id"`
	Timestamp  string  `json:"timestamp"`
	Yaw        float64 `json:"yaw"`
	Pitch      float64 `json:"pitch"`
	Roll       float64 `json:"roll"`
	Posture    string  `json:"posture"`
	Confidence float64 `json:"confidence"`
}

// StressRecord is the persistence payload for one audio window.
type StressRecord struct {
	SessionID      string  `json:"session_id,omitempty"`
	AudioID        string  `json:"audio_id"`
	WindowStart    string  `json:"window_start"`
	WindowEnd      string  `json:"window_end"`
	StressScore    float64 `json:"stress_score"`
	VocalEffort    float64 `json:"vocal_effort"`
	SmoothingCount int     `json:"smoothing_count"`
	SignalQuality  float64 `json:"signal_quality"`
}

// ProductivityRecord is the persistence payload for the cycle's aggregate
// productivity state.
type ProductivityRecord struct {
	SessionID         string  `json:"session_id,omitempty"`
	TotalBreaks       int     `json:"total_breaks"`
	AvgBreakDuration  float64 `json:"avg_break_duration"`
	BreakPatternType  string  `json:"break_pattern_type"`
	ProductivityScore float64 `json:"productivity_score"`
}

// LatencySnapshot aggregates recent total-cycle latencies for dashboards.
type LatencySnapshot struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	P95Ms float64 `json:"p95_ms"`
	MaxMs float64 `json:"max_ms"`
}
