// Package pipeline orchestrates one capture cycle: frame preprocessing,
// gaze/pose/stress estimation, KPI aggregation, and assembly of the
// persistence payloads and outbound stream messages.
//
// A Pipeline owns shared mutable state (the calibration transform, the
// estimators' smoothing histories, the rolling windows), so cycles are
// serialized under one internal mutex: calibration updates apply
// atomically before a cycle's estimation stages, and no two cycles ever
// interleave.
package pipeline

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eaglearn/go-sense/internal/log"
	"github.com/eaglearn/go-sense/pkg/calibration"
	"github.com/eaglearn/go-sense/pkg/estimate"
	"github.com/eaglearn/go-sense/pkg/kpi"
	"github.com/eaglearn/go-sense/pkg/media"
	"github.com/eaglearn/go-sense/pkg/protocol"
)

// Default rolling-window sizes and alert thresholds.
const (
	DefaultMetricsWindow        = 120
	DefaultLatencyWindow        = 50
	DefaultStressAlertThreshold = 0.8
)

// postureAlertExempt are the posture classes that never raise an alert.
var postureAlertExempt = map[string]bool{
	"neutral": true,
	"good":    true,
	"optimal": true,
}

// Collaborator contracts. Each is a total function: for well-formed input
// it returns a valid, confidence-scored result and never fails, which
// keeps RunCycle free of per-stage error branching.
type (
	// FramePreprocessor normalizes a decoded frame for the estimators.
	FramePreprocessor interface {
		Preprocess(*media.Frame) *media.Frame
	}

	// AudioPreprocessor resamples a decoded audio window.
	AudioPreprocessor interface {
		Preprocess(samples []float32, fromRate int) []float32
	}

	// GazeEstimator estimates gaze, optionally through a calibration
	// transform. Implementations may keep smoothing state across calls
	// and need not be reentrant; the pipeline serializes access.
	GazeEstimator interface {
		Estimate(*media.Frame, *calibration.Matrix) estimate.GazeResult
	}

	// PoseEstimator estimates head pose and posture.
	PoseEstimator interface {
		Estimate(*media.Frame) estimate.PoseResult
	}

	// StressAnalyzer estimates vocal stress for an audio window.
	StressAnalyzer interface {
		Analyze([]float32) estimate.StressResult
	}

	// KPICalculator aggregates estimator outputs into metrics.
	KPICalculator interface {
		Calculate(estimate.GazeResult, estimate.PoseResult, estimate.StressResult) kpi.Metrics
	}

	// CalibrationSolver computes a transform from 4 sample pairs.
	CalibrationSolver interface {
		Solve(screenPoints, gazePoints []calibration.Point) (calibration.Matrix, float64, error)
	}
)

// Config holds pipeline tuning. Zero values fall back to defaults.
type Config struct {
	// MetricsWindow bounds the rolling KPI history.
	MetricsWindow int

	// LatencyWindow bounds the rolling total-latency history.
	LatencyWindow int

	// StressAlertThreshold is the aggregate stress score at or above
	// which a stress alert is emitted.
	StressAlertThreshold float64
}

func (c Config) withDefaults() Config {
	if c.MetricsWindow <= 0 {
		c.MetricsWindow = DefaultMetricsWindow
	}
	if c.LatencyWindow <= 0 {
		c.LatencyWindow = DefaultLatencyWindow
	}
	if c.StressAlertThreshold <= 0 {
		c.StressAlertThreshold = DefaultStressAlertThreshold
	}
	return c
}

// Collaborators bundles the external functions a pipeline calls into.
// Nil fields fall back to the bundled implementations.
type Collaborators struct {
	FramePreprocessor FramePreprocessor
	AudioPreprocessor AudioPreprocessor
	Gaze              GazeEstimator
	Pose              PoseEstimator
	Stress            StressAnalyzer
	KPI               KPICalculator
	Solver            CalibrationSolver
}

func (c Collaborators) withDefaults() Collaborators {
	if c.FramePreprocessor == nil {
		c.FramePreprocessor = media.NewFramePreprocessor()
	}
	if c.AudioPreprocessor == nil {
		c.AudioPreprocessor = media.NewAudioPreprocessor()
	}
	if c.Gaze == nil {
		c.Gaze = estimate.NewGazeEstimator()
	}
	if c.Pose == nil {
		c.Pose = estimate.NewPoseEstimator()
	}
	if c.Stress == nil {
		c.Stress = estimate.NewStressAnalyzer()
	}
	if c.KPI == nil {
		c.KPI = kpi.NewCalculator()
	}
	if c.Solver == nil {
		c.Solver = calibration.NewSolver()
	}
	return c
}

// CalibrationUpdate asks the cycle to install a new transform, solved from
// 4 screen/gaze sample pairs, before its estimation stages run.
type CalibrationUpdate struct {
	ScreenPoints []calibration.Point
	GazePoints   []calibration.Point
}

// CycleInput is everything one cycle consumes. Frame and Audio must be
// decoded and well-formed; the boundary layer validates encodings before
// the pipeline is invoked.
type CycleInput struct {
	Frame      *media.Frame
	Audio      []float32
	SampleRate int

	SessionID string
	Timestamp time.Time // Zero value means now

	Calibration      *CalibrationUpdate
	ResetCalibration bool
}

// Pipeline runs capture cycles. Create one per process with New.
type Pipeline struct {
	cfg Config
	col Collaborators

	mu sync.Mutex

	// Calibration state, replaced wholesale on update, cleared on reset.
	// Guarded by mu along with the estimators and rolling windows.
	transform  *calibration.Matrix
	accuracy   float64
	calibrated bool

	metricsWindow *window[kpi.Metrics]
	latencyWindow *window[float64]
}

// New creates a pipeline.
func New(cfg Config, col Collaborators) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:           cfg,
		col:           col.withDefaults(),
		metricsWindow: newWindow[kpi.Metrics](cfg.MetricsWindow),
		latencyWindow: newWindow[float64](cfg.LatencyWindow),
	}
}

// RunCycle executes one capture cycle. Cycles are serialized internally;
// a calibration update or reset carried on the input applies atomically
// before the estimation stages, so a cycle never observes a half-updated
// transform. The only error path is an invalid calibration update, which
// fails the cycle before any stage runs.
func (p *Pipeline) RunCycle(in CycleInput) (*CycleResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if in.ResetCalibration {
		p.resetCalibrationLocked()
	}
	if in.Calibration != nil {
		if _, err := p.updateCalibrationLocked(in.Calibration.ScreenPoints, in.Calibration.GazePoints); err != nil {
			return nil, err
		}
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	frameID := uuid.NewString()
	audioID := uuid.NewString()

	latencies := make(map[string]float64, 7)
	totalStart := time.Now()

	// Frame preprocessing
	start := time.Now()
	frame := p.col.FramePreprocessor.Preprocess(in.Frame)
	latencies["frame_preprocess"] = msSince(start)

	// Gaze estimation (calibration-aware)
	start = time.Now()
	gaze := p.col.Gaze.Estimate(frame, p.transform)
	latencies["gaze"] = msSince(start)

	// Pose estimation
	start = time.Now()
	pose := p.col.Pose.Estimate(frame)
	latencies["pose"] = msSince(start)

	// Audio preprocessing
	start = time.Now()
	audio := p.col.AudioPreprocessor.Preprocess(in.Audio, in.SampleRate)
	latencies["audio_preprocess"] = msSince(start)

	// Stress analysis
	start = time.Now()
	stress := p.col.Stress.Analyze(audio)
	latencies["stress"] = msSince(start)

	// KPI aggregation
	start = time.Now()
	metrics := p.col.KPI.Calculate(gaze, pose, stress)
	latencies["kpi"] = msSince(start)

	latencies["total"] = msSince(totalStart)

	p.metricsWindow.Push(metrics)
	p.latencyWindow.Push(latencies["total"])

	telemetry := Telemetry{
		Timestamp:   ts,
		FrameID:     frameID,
		AudioID:     audioID,
		LatenciesMs: latencies,
	}

	payloads := p.buildPayloads(in.SessionID, telemetry, gaze, pose, stress, metrics)

	return &CycleResult{
		Telemetry:        telemetry,
		Gaze:             gaze,
		Pose:             pose,
		Stress:           stress,
		Metrics:          metrics,
		Payloads:         payloads,
		OutboundMessages: p.buildMessages(in.SessionID, telemetry, pose, metrics, payloads),
		RollingSummary:   p.rollingSummaryLocked(),
	}, nil
}

// UpdateCalibration solves and installs a new transform. A nil gazePoints
// slice reuses the screen points, which yields an identity-like mapping.
func (p *Pipeline) UpdateCalibration(screenPoints, gazePoints []calibration.Point) (calibration.Matrix, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.updateCalibrationLocked(screenPoints, gazePoints)
	return m, p.accuracy, err
}

// ResetCalibration drops the current transform.
func (p *Pipeline) ResetCalibration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetCalibrationLocked()
}

// CalibrationState returns the current transform and accuracy, and
// whether a calibration is installed.
func (p *Pipeline) CalibrationState() (calibration.Matrix, float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.calibrated {
		return calibration.Matrix{}, 0, false
	}
	return *p.transform, p.accuracy, true
}

// LatencySnapshot aggregates the rolling total-cycle latencies.
func (p *Pipeline) LatencySnapshot() LatencySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.latencyWindow.Values()
	if len(values) == 0 {
		return LatencySnapshot{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	count := len(sorted)

	return LatencySnapshot{
		Count: count,
		AvgMs: round3(sum / float64(count)),
		P95Ms: round3(sorted[int(0.95*float64(count-1))]),
		MaxMs: round3(sorted[count-1]),
	}
}

// RollingSummary returns the mean of each tracked KPI over the metrics
// window, or an empty map before the first cycle completes.
func (p *Pipeline) RollingSummary() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rollingSummaryLocked()
}

func (p *Pipeline) updateCalibrationLocked(screenPoints, gazePoints []calibration.Point) (calibration.Matrix, error) {
	if gazePoints == nil {
		gazePoints = screenPoints
	}

	m, accuracy, err := p.col.Solver.Solve(screenPoints, gazePoints)
	if err != nil {
		return calibration.Matrix{}, err
	}

	p.transform = &m
	p.accuracy = accuracy
	p.calibrated = true
	log.Info("calibration updated", "accuracy", accuracy)
	return m, nil
}

func (p *Pipeline) resetCalibrationLocked() {
	p.transform = nil
	p.accuracy = 0
	p.calibrated = false
}

func (p *Pipeline) buildPayloads(sessionID string, t Telemetry, gaze estimate.GazeResult, pose estimate.PoseResult, stress estimate.StressResult, metrics kpi.Metrics) map[string]interface{} {
	iso := isoTime(t.Timestamp)

	return map[string]interface{}{
		"gaze": GazeRecord{
			SessionID:  sessionID,
			FrameID:    t.FrameID,
			Timestamp:  iso,
			GazeX:      gaze.GazeX,
			GazeY:      gaze.GazeY,
			Direction:  gaze.Direction,
			Angle:      gaze.Angle,
			Confidence: gaze.Confidence,
		},
		"pose": PoseRecord{
			SessionID:  sessionID,
			FrameID:    t.FrameID,
			Timestamp:  iso,
			Yaw:        pose.Yaw,
			Pitch:      pose.Pitch,
			Roll:       pose.Roll,
			Posture:    pose.Posture,
			Confidence: pose.Confidence,
		},
		"stress": StressRecord{
			SessionID:     sessionID,
			AudioID:       t.AudioID,
			WindowStart:   iso,
			WindowEnd:     iso,
			StressScore:   stress.StressLevel,
			VocalEffort:   stress.Confidence,
			SignalQuality: stress.SignalQuality,
		},
		"productivity": ProductivityRecord{
			SessionID:         sessionID,
			BreakPatternType:  "unknown",
			ProductivityScore: metrics.OverallProductivity,
		},
	}
}

func (p *Pipeline) buildMessages(sessionID string, t Telemetry, pose estimate.PoseResult, metrics kpi.Metrics, payloads map[string]interface{}) []*protocol.Message {
	iso := isoTime(t.Timestamp)
	messages := make([]*protocol.Message, 0, 4)

	frameMsg, err := protocol.NewFrameMetricsMessage(protocol.FrameMetricsPayload{
		SessionID:   sessionID,
		FrameID:     t.FrameID,
		Timestamp:   iso,
		LatenciesMs: t.LatenciesMs,
		Metrics:     metrics.Map(),
	})
	if err == nil {
		messages = append(messages, frameMsg)
	} else {
		log.Error("frame metrics message build failed", "error", err)
	}

	sessionMsg, err := protocol.NewSessionUpdateMessage(protocol.SessionUpdatePayload{
		SessionID:           sessionID,
		OverallProductivity: metrics.OverallProductivity,
		FocusScore:          metrics.FocusScore,
		EngagementScore:     metrics.EngagementScore,
		StressScore:         metrics.StressScore,
		Timestamp:           iso,
		Payloads:            payloads,
	})
	if err == nil {
		messages = append(messages, sessionMsg)
	} else {
		log.Error("session update message build failed", "error", err)
	}

	if metrics.StressScore >= p.cfg.StressAlertThreshold {
		alert, err := protocol.NewAlertMessage(protocol.AlertPayload{
			SessionID: sessionID,
			Severity:  "high",
			Category:  "stress",
			Value:     metrics.StressScore,
			Timestamp: iso,
		})
		if err == nil {
			messages = append(messages, alert)
		}
	}

	if posture := strings.ToLower(pose.Posture); posture != "" && !postureAlertExempt[posture] {
		alert, err := protocol.NewAlertMessage(protocol.AlertPayload{
			SessionID: sessionID,
			Severity:  "medium",
			Category:  "posture",
			Value:     pose.Posture,
			Timestamp: iso,
		})
		if err == nil {
			messages = append(messages, alert)
		}
	}

	return messages
}

func (p *Pipeline) rollingSummaryLocked() map[string]float64 {
	history := p.metricsWindow.Values()
	if len(history) == 0 {
		return map[string]float64{}
	}

	var focus, engagement, stress, posture, overall float64
	for _, m := range history {
		focus += m.FocusScore
		engagement += m.EngagementScore
		stress += m.StressScore
		posture += m.PostureScore
		overall += m.OverallProductivity
	}
	n := float64(len(history))

	return map[string]float64{
		"focus_score":          round3(focus / n),
		"engagement_score":     round3(engagement / n),
		"stress_score":         round3(stress / n),
		"posture_score":        round3(posture / n),
		"overall_productivity": round3(overall / n),
	}
}

// msSince returns elapsed milliseconds on the monotonic clock, rounded to
// 3 decimals.
func msSince(start time.Time) float64 {
	return round3(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
