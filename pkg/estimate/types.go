// Package estimate provides the gaze, head-pose, and vocal-stress
// estimators consumed by the pipeline.
//
// Every estimator is total: for any well-formed input it returns a valid,
// confidence-scored result, degrading to a neutral default when the signal
// is unusable. Estimators keep temporal smoothing state across calls and
// are not safe for concurrent use; the pipeline serializes access.
package estimate

// GazeResult is a single gaze estimate in normalized screen coordinates.
type GazeResult struct {
	GazeX      float64 `json:"gaze_x"` // 0.0 to 1.0
	GazeY      float64 `json:"gaze_y"` // 0.0 to 1.0
	Direction  string  `json:"gaze_direction"`
	Angle      float64 `json:"gaze_angle"` // Degrees from screen center
	RawGazeX   float64 `json:"raw_gaze_x"` // Before calibration
	RawGazeY   float64 `json:"raw_gaze_y"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
}

// DefaultGazeResult is the neutral result when no face signal is usable.
func DefaultGazeResult() GazeResult {
	return GazeResult{
		GazeX:     0.5,
		GazeY:     0.5,
		Direction: "center",
		RawGazeX:  0.5,
		RawGazeY:  0.5,
	}
}

// PoseResult is a head orientation estimate with posture classification.
type PoseResult struct {
	Yaw        float64 `json:"yaw"`   // Degrees
	Pitch      float64 `json:"pitch"` // Degrees
	Roll       float64 `json:"roll"`  // Degrees
	Posture    string  `json:"posture"`
	Confidence float64 `json:"confidence"`
}

// DefaultPoseResult is the neutral result when no face signal is usable.
func DefaultPoseResult() PoseResult {
	return PoseResult{Posture: "unknown"}
}

// StressResult is a vocal stress estimate for one audio window.
type StressResult struct {
	StressLevel   float64 `json:"stress_level"` // 0.0 to 1.0
	Category      string  `json:"stress_category"`
	Confidence    float64 `json:"confidence"`
	SignalQuality float64 `json:"signal_quality"`
}

// DefaultStressResult is the neutral result when the window is unusable.
func DefaultStressResult() StressResult {
	return StressResult{Category: "low", SignalQuality: 1.0}
}
