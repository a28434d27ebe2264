package web

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/eaglearn/go-sense/internal/log"
	"github.com/eaglearn/go-sense/pkg/calibration"
	"github.com/eaglearn/go-sense/pkg/media"
	"github.com/eaglearn/go-sense/pkg/pipeline"
)

type processRequest struct {
	FrameData     string `json:"frame_data"`
	FrameEncoding string `json:"frame_encoding"`
	AudioData     string `json:"audio_data"`
	AudioFormat   string `json:"audio_format"`
	SampleRate    int    `json:"sample_rate"`
	SessionID     string `json:"session_id"`
	Timestamp     string `json:"timestamp"`

	// Optional calibration instructions, applied atomically before the
	// cycle's estimation stages.
	Calibration      *calibrationRequest `json:"calibration"`
	ResetCalibration bool                `json:"reset_calibration"`
}

type calibrationRequest struct {
	ScreenPoints [][]float64 `json:"screen_points"`
	GazePoints   [][]float64 `json:"gaze_points"`
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// handleProcess runs one full pipeline cycle from a trigger request.
// All decoding errors are the caller's fault and come back as 400s; the
// pipeline itself never fails a cycle on estimator trouble.
func (s *Server) handleProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.AudioData == "" {
		return errorJSON(c, fiber.StatusBadRequest, "audio_data is required")
	}

	encoding := req.FrameEncoding
	if encoding == "" {
		encoding = "jpeg"
	}
	format := req.AudioFormat
	if format == "" {
		format = "float32"
	}

	frameBytes, err := base64.StdEncoding.DecodeString(req.FrameData)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "frame_data is not valid base64")
	}
	frame, err := media.DecodeFrame(frameBytes, encoding)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedFrameEncoding) {
			return errorJSON(c, fiber.StatusBadRequest, "unsupported frame encoding: "+encoding)
		}
		return errorJSON(c, fiber.StatusBadRequest, "frame_data could not be decoded")
	}

	audioBytes, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "audio_data is not valid base64")
	}
	samples, err := media.DecodeAudio(audioBytes, format)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedAudioFormat) {
			return errorJSON(c, fiber.StatusBadRequest, "unsupported audio format: "+format)
		}
		return errorJSON(c, fiber.StatusBadRequest, "audio_data could not be decoded")
	}
	if len(samples) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "audio buffer is empty")
	}

	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = media.DefaultSampleRate
	}

	var ts time.Time
	if req.Timestamp != "" {
		ts, err = time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "timestamp must be RFC3339")
		}
	}

	var update *pipeline.CalibrationUpdate
	if req.Calibration != nil {
		screen, err := toPoints(req.Calibration.ScreenPoints)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "calibration.screen_points: "+err.Error())
		}
		var gaze []calibration.Point
		if req.Calibration.GazePoints != nil {
			gaze, err = toPoints(req.Calibration.GazePoints)
			if err != nil {
				return errorJSON(c, fiber.StatusBadRequest, "calibration.gaze_points: "+err.Error())
			}
		}
		update = &pipeline.CalibrationUpdate{ScreenPoints: screen, GazePoints: gaze}
	}

	result, err := s.pipeline.RunCycle(pipeline.CycleInput{
		Frame:            frame,
		Audio:            samples,
		SampleRate:       sampleRate,
		SessionID:        req.SessionID,
		Timestamp:        ts,
		Calibration:      update,
		ResetCalibration: req.ResetCalibration,
	})
	if err != nil {
		// The only failure RunCycle reports is a rejected calibration,
		// which happens before any stage runs.
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	for _, msg := range result.OutboundMessages {
		s.registry.Broadcast(msg)
	}

	if s.Recorder != nil {
		if err := s.Recorder.RecordCycle(c.Context(), result.Payloads); err != nil {
			log.Warn("cycle recording failed", "error", err, "frame_id", result.Telemetry.FrameID)
		}
	}

	messages := make([]interface{}, 0, len(result.OutboundMessages))
	for _, msg := range result.OutboundMessages {
		messages = append(messages, msg)
	}

	return c.JSON(fiber.Map{
		"timestamp":          result.Telemetry.Timestamp,
		"frame_id":           result.Telemetry.FrameID,
		"audio_id":           result.Telemetry.AudioID,
		"latencies_ms":       result.Telemetry.LatenciesMs,
		"gaze":               result.Gaze,
		"pose":               result.Pose,
		"stress":             result.Stress,
		"metrics":            result.Metrics.Map(),
		"rest_payloads":      result.Payloads,
		"websocket_messages": messages,
		"rolling_summary":    result.RollingSummary,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	connections := 0
	for _, st := range s.registry.GetStats() {
		connections += st.Connections
	}
	return c.JSON(fiber.Map{
		"status":      "ok",
		"channels":    s.registry.Channels(),
		"connections": connections,
	})
}

func (s *Server) handleLatency(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.LatencySnapshot())
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.RollingSummary())
}

// handleCalibration recomputes the gaze transform from a fresh point set.
// The update is atomic with respect to running cycles.
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	var req calibrationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	screen, err := toPoints(req.ScreenPoints)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "screen_points: "+err.Error())
	}
	var gaze []calibration.Point
	if req.GazePoints != nil {
		gaze, err = toPoints(req.GazePoints)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "gaze_points: "+err.Error())
		}
	}

	matrix, accuracy, err := s.pipeline.UpdateCalibration(screen, gaze)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"calibration_id":   uuid.NewString(),
		"transform_matrix": matrix,
		"accuracy":         accuracy,
		"status":           "calibrated",
	})
}

func (s *Server) handleResetCalibration(c *fiber.Ctx) error {
	s.pipeline.ResetCalibration()
	return c.JSON(fiber.Map{"status": "reset"})
}

func (s *Server) handleStreamStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"channels": s.registry.GetStats()})
}

func toPoints(pairs [][]float64) ([]calibration.Point, error) {
	points := make([]calibration.Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, errors.New("each point must be an [x, y] pair")
		}
		points = append(points, calibration.Point{X: p[0], Y: p[1]})
	}
	return points, nil
}
