// sensed: multimodal sensing delivery service
// Runs the capture pipeline behind an HTTP trigger and fans results out
// to WebSocket subscribers on per-signal channels.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/eaglearn/go-sense/internal/config"
	"github.com/eaglearn/go-sense/internal/log"
	"github.com/eaglearn/go-sense/pkg/pipeline"
	"github.com/eaglearn/go-sense/pkg/stream"
	"github.com/eaglearn/go-sense/pkg/web"
)

var version = "1.0.0"

// Channels served to subscribers. Every cycle's messages go to all of
// them; clients pick the channel matching the signal they care about.
var channels = []string{"gaze", "pose", "stress"}

func main() {
	port := flag.String("port", "", "HTTP server port (overrides SENSE_PORT)")
	flag.Parse()

	log.Init(config.LogLevel())
	log.Info("sensed starting", "version", version)

	listenPort := config.Port()
	if *port != "" {
		listenPort = *port
	}

	p := pipeline.New(pipeline.Config{
		StressAlertThreshold: config.StressAlertThreshold(),
	}, pipeline.Collaborators{})

	registry := stream.NewRegistry(stream.Config{
		QueueCapacity: config.QueueCapacity(),
		PingInterval:  config.PingInterval(),
		PongTimeout:   config.PongTimeout(),
	}, channels...)

	server := web.NewServer(listenPort, p, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
