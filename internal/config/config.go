// Package config provides configuration helpers for go-sense commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default server and streaming configuration.
const (
	DefaultPort          = "8000"
	DefaultQueueCapacity = 64
	DefaultPingInterval  = 30 * time.Second
	DefaultPongTimeout   = 10 * time.Second

	// DefaultStressAlertThreshold is compared against the aggregate
	// stress KPI (0-1 scale). Deployments that observe a 0-100 scale
	// should override SENSE_STRESS_ALERT_THRESHOLD instead of assuming
	// the literal value is correct.
	DefaultStressAlertThreshold = 0.8
)

// Port returns the HTTP port from SENSE_PORT env var or the default.
func Port() string {
	if p := os.Getenv("SENSE_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from SENSE_LOG_LEVEL env var or "info".
func LogLevel() string {
	if lvl := os.Getenv("SENSE_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

// QueueCapacity returns the per-connection outbound queue capacity.
func QueueCapacity() int {
	return intEnv("SENSE_QUEUE_CAPACITY", DefaultQueueCapacity)
}

// PingInterval returns the heartbeat ping interval.
func PingInterval() time.Duration {
	return durationEnv("SENSE_PING_INTERVAL", DefaultPingInterval)
}

// PongTimeout returns the grace period after the ping interval before a
// silent connection is considered dead.
func PongTimeout() time.Duration {
	return durationEnv("SENSE_PONG_TIMEOUT", DefaultPongTimeout)
}

// StressAlertThreshold returns the aggregate stress score at or above
// which a stress alert is emitted.
func StressAlertThreshold() float64 {
	if v := os.Getenv("SENSE_STRESS_ALERT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return DefaultStressAlertThreshold
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
