package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eaglearn/go-sense/pkg/protocol"
)

// Transport is the write side of an already-accepted subscriber connection.
// The protocol layer owns the handshake and the read loop; the broker only
// writes to the transport and closes it on teardown.
//
// Transport values are used as map keys for pong routing, so implementations
// must be comparable (pointer types are).
type Transport interface {
	WriteJSON(v interface{}) error
	Close() error
}

// State describes a connection's position in its lifecycle.
type State int32

const (
	StateRegistering State = iota
	StateActive
	StateClosing
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Connection represents a single subscriber on a channel.
type Connection struct {
	ID        string
	CreatedAt time.Time

	transport Transport
	queue     chan *protocol.Message

	// lastPong is unix nanos of the most recent pong from the subscriber.
	lastPong atomic.Int64

	// dropped counts queue evictions since the last backpressure flush.
	dropped atomic.Int64

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes transport writes between the sender and
	// heartbeat goroutines.
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConnection(id string, t Transport, queueCapacity int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		ID:        id,
		CreatedAt: time.Now(),
		transport: t,
		queue:     make(chan *protocol.Message, queueCapacity),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.lastPong.Store(time.Now().UnixNano())
	return c
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

// LastPong returns when the subscriber last acknowledged a heartbeat.
func (c *Connection) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}

// Dropped returns the number of messages evicted since the last flush.
func (c *Connection) Dropped() int {
	return int(c.dropped.Load())
}

// write sends one message on the transport. Only one goroutine may write
// to a WebSocket at a time, so all transport writes funnel through here.
func (c *Connection) write(msg *protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteJSON(msg)
}

// enqueue adds a message to the outbound queue, evicting the oldest queued
// message when full. Freshness beats completeness for live telemetry: the
// subscriber gets the most recent messages plus an honest drop count.
func (c *Connection) enqueue(msg *protocol.Message) {
	select {
	case c.queue <- msg:
		return
	default:
	}

	// Queue full: evict the oldest, then retry once.
	select {
	case <-c.queue:
		c.dropped.Add(1)
	default:
		// Sender drained it in the meantime.
	}
	select {
	case c.queue <- msg:
	default:
		c.dropped.Add(1)
	}
}
