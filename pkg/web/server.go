// Package web exposes the capture pipeline and the streaming channels
// over HTTP. It owns the boundary validation: malformed trigger requests
// are rejected here with a client-visible error, before the pipeline runs.
package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/eaglearn/go-sense/internal/log"
	"github.com/eaglearn/go-sense/pkg/pipeline"
	"github.com/eaglearn/go-sense/pkg/protocol"
	"github.com/eaglearn/go-sense/pkg/stream"
)

// Recorder consumes the per-cycle persistence payloads. Durable storage
// is its problem; the server only hands payloads over.
type Recorder interface {
	RecordCycle(ctx context.Context, payloads map[string]interface{}) error
}

// Server ties the pipeline and the broker registry to HTTP and WebSocket
// endpoints.
type Server struct {
	app      *fiber.App
	port     string
	pipeline *pipeline.Pipeline
	registry *stream.Registry

	// Recorder, when set, receives every cycle's persistence payloads.
	// Recording failures are logged, never surfaced to the trigger.
	Recorder Recorder
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(port string, p *pipeline.Pipeline, registry *stream.Registry) *Server {
	s := &Server{
		port:     port,
		pipeline: p,
		registry: registry,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-sense",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for local dashboards
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/pipeline/process", s.handleProcess)
	api.Get("/pipeline/latency", s.handleLatency)
	api.Get("/pipeline/summary", s.handleSummary)
	api.Post("/calibration", s.handleCalibration)
	api.Delete("/calibration", s.handleResetCalibration)
	api.Get("/streams/stats", s.handleStreamStats)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:channel", websocket.New(s.handleStream))

	s.app = app
	return s
}

// Start serves HTTP on the configured port, blocking until shutdown.
func (s *Server) Start() error {
	log.Info("http server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the server and tears down every stream.
func (s *Server) Shutdown() error {
	s.registry.Close()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// handleStream serves one subscriber connection. The handshake is already
// done by the time fiber invokes this handler; the broker only takes over
// post-handshake lifecycle. The read loop routes pong control messages to
// the broker and tolerates anything else.
func (s *Server) handleStream(c *websocket.Conn) {
	channel := c.Params("channel")
	broker := s.registry.Get(channel)
	if broker == nil {
		log.Warn("subscription to unknown channel", "channel", channel)
		c.Close()
		return
	}

	id, err := broker.RegisterConnection(c)
	if err != nil {
		c.Close()
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			broker.Disconnect(id)
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Type == string(protocol.TypePong) {
			broker.HandlePong(c)
		}
	}
}
