// Package stream fans live telemetry out to WebSocket subscribers.
//
// Each Broker owns one named channel (e.g. "gaze") and its set of
// connections. A slow or dead subscriber never stalls the others: every
// connection has its own bounded queue with drop-oldest eviction and its
// own sender and heartbeat goroutines.
package stream

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/eaglearn/go-sense/internal/log"
	"github.com/eaglearn/go-sense/pkg/protocol"
)

// Default streaming parameters, matching Config zero-value fallbacks.
const (
	DefaultQueueCapacity = 64
	DefaultPingInterval  = 30 * time.Second
	DefaultPongTimeout   = 10 * time.Second
)

// ErrBrokerClosed is returned when registering on a closed broker.
var ErrBrokerClosed = errors.New("stream: broker closed")

// Config holds per-broker tuning. Zero values fall back to defaults.
type Config struct {
	// QueueCapacity bounds each connection's outbound queue.
	QueueCapacity int

	// PingInterval is how often heartbeats are sent.
	PingInterval time.Duration

	// PongTimeout is the grace period past PingInterval before a silent
	// connection is considered dead.
	PongTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	return c
}

// Broker manages the subscriber connections of one channel.
type Broker struct {
	channel string
	cfg     Config

	mu            sync.RWMutex
	connsByID     map[string]*Connection
	idByTransport map[Transport]string
	closed        bool

	// Stats
	published    atomic.Uint64
	totalDropped atomic.Uint64
	disconnected atomic.Uint64
}

// New creates a broker for the named channel.
func New(channel string, cfg Config) *Broker {
	return &Broker{
		channel:       channel,
		cfg:           cfg.withDefaults(),
		connsByID:     make(map[string]*Connection),
		idByTransport: make(map[Transport]string),
	}
}

// Channel returns the broker's channel name.
func (b *Broker) Channel() string {
	return b.channel
}

// RegisterConnection adds an already-accepted transport to the channel and
// starts its sender and heartbeat goroutines. The handshake belongs to the
// caller; the broker owns only post-handshake lifecycle.
func (b *Broker) RegisterConnection(t Transport) (string, error) {
	id := uuid.NewString()
	conn := newConnection(id, t, b.cfg.QueueCapacity)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", ErrBrokerClosed
	}
	b.connsByID[id] = conn
	b.idByTransport[t] = id
	count := len(b.connsByID)
	b.mu.Unlock()

	go b.senderLoop(conn)
	go b.heartbeatLoop(conn)
	conn.setState(StateActive)

	log.Info("connection opened", "channel", b.channel, "connection", id, "total", count)
	return id, nil
}

// Disconnect tears down a connection by id. Idempotent: disconnecting an
// unknown or already-closed connection is a no-op.
func (b *Broker) Disconnect(id string) {
	b.mu.Lock()
	conn, ok := b.connsByID[id]
	if ok {
		delete(b.connsByID, id)
		delete(b.idByTransport, conn.transport)
	}
	count := len(b.connsByID)
	b.mu.Unlock()

	if !ok {
		return
	}

	conn.closeOnce.Do(func() {
		conn.setState(StateClosing)
		conn.cancel()

		// Best-effort sentinel so a sender blocked on an empty queue
		// wakes immediately; a full queue is fine, ctx covers it.
		select {
		case conn.queue <- nil:
		default:
		}

		// The connection is already being torn down; close failures
		// are expected and swallowed.
		_ = conn.transport.Close()
		conn.setState(StateClosed)
	})

	b.disconnected.Add(1)
	log.Info("connection closed", "channel", b.channel, "connection", id, "remaining", count)
}

// DisconnectTransport tears down the connection owning the given transport.
func (b *Broker) DisconnectTransport(t Transport) {
	b.mu.RLock()
	id, ok := b.idByTransport[t]
	b.mu.RUnlock()
	if ok {
		b.Disconnect(id)
	}
}

// HandlePong records a heartbeat acknowledgement from a subscriber, looked
// up by its transport handle.
func (b *Broker) HandlePong(t Transport) {
	b.mu.RLock()
	id, ok := b.idByTransport[t]
	var conn *Connection
	if ok {
		conn = b.connsByID[id]
	}
	b.mu.RUnlock()

	if conn != nil {
		conn.lastPong.Store(time.Now().UnixNano())
	}
}

// Publish enqueues a message for every live connection on the channel.
// The connection set is snapshotted under a short lock and all enqueues
// happen outside it, so one connection cannot block publication to the rest.
// Publishers never learn whether any given subscriber received the message.
func (b *Broker) Publish(msg *protocol.Message) {
	// Stamp a copy: the same message may be published to several brokers.
	m := *msg
	m.Channel = b.channel

	b.mu.RLock()
	conns := make([]*Connection, 0, len(b.connsByID))
	for _, c := range b.connsByID {
		conns = append(conns, c)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, c := range conns {
		c.enqueue(&m)
	}
}

// Close tears down every connection on the channel and rejects further
// registrations.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	ids := make([]string, 0, len(b.connsByID))
	for id := range b.connsByID {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Disconnect(id)
	}
}

// senderLoop drains one connection's queue onto its transport. Before each
// real message it flushes a backpressure status if anything was dropped, so
// a subscriber always learns how much it missed before data resumes.
func (b *Broker) senderLoop(conn *Connection) {
	defer b.Disconnect(conn.ID)

	for {
		select {
		case <-conn.ctx.Done():
			return
		case msg := <-conn.queue:
			if msg == nil {
				// Close sentinel: exit without touching the transport.
				return
			}

			if n := conn.dropped.Load(); n > 0 {
				status, err := protocol.NewBackpressureMessage(b.channel, int(n))
				if err != nil {
					return
				}
				if err := conn.write(status); err != nil {
					return
				}
				// Subtract rather than reset: drops racing in during
				// the write are reported on the next flush.
				conn.dropped.Add(-n)
				b.totalDropped.Add(uint64(n))
			}

			if err := conn.write(msg); err != nil {
				log.Debug("send failed", "channel", b.channel, "connection", conn.ID, "error", err)
				return
			}
		}
	}
}

// heartbeatLoop probes the subscriber every ping interval and evicts it
// once a pong is overdue. Heartbeats bypass the outbound queue: liveness
// probes must not be subject to backpressure dropping.
func (b *Broker) heartbeatLoop(conn *Connection) {
	defer b.Disconnect(conn.ID)

	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.ctx.Done():
			return
		case <-ticker.C:
			if time.Since(conn.LastPong()) > b.cfg.PingInterval+b.cfg.PongTimeout {
				log.Warn("heartbeat timeout", "channel", b.channel, "connection", conn.ID)
				return
			}

			hb, err := protocol.NewHeartbeatMessage(b.channel)
			if err != nil {
				return
			}
			if err := conn.write(hb); err != nil {
				return
			}
		}
	}
}

// ConnectionCount returns the number of live connections.
func (b *Broker) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.connsByID)
}

// Stats contains broker statistics.
type Stats struct {
	Channel      string `json:"channel"`
	Connections  int    `json:"connections"`
	Published    uint64 `json:"published"`
	Dropped      uint64 `json:"dropped"`
	Disconnected uint64 `json:"disconnected"`
}

// GetStats returns a statistics snapshot for the channel.
func (b *Broker) GetStats() Stats {
	return Stats{
		Channel:      b.channel,
		Connections:  b.ConnectionCount(),
		Published:    b.published.Load(),
		Dropped:      b.totalDropped.Load(),
		Disconnected: b.disconnected.Load(),
	}
}

// ConnectionInfo describes one live connection.
type ConnectionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastPong  time.Time `json:"last_pong"`
	Dropped   int       `json:"dropped"`
	State     string    `json:"state"`
}

// GetConnectionInfos returns info about every live connection.
func (b *Broker) GetConnectionInfos() []ConnectionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(b.connsByID))
	for _, c := range b.connsByID {
		infos = append(infos, ConnectionInfo{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			LastPong:  c.LastPong(),
			Dropped:   c.Dropped(),
			State:     c.State().String(),
		})
	}
	return infos
}
