package stream

import "github.com/eaglearn/go-sense/pkg/protocol"

// Registry holds one broker per channel. It is constructed once at the
// composition root and lives for the process lifetime; the channel set is
// fixed at construction, so lookups need no locking.
type Registry struct {
	brokers map[string]*Broker
	order   []string
}

// NewRegistry creates a broker for each named channel.
func NewRegistry(cfg Config, channels ...string) *Registry {
	r := &Registry{
		brokers: make(map[string]*Broker, len(channels)),
		order:   make([]string, 0, len(channels)),
	}
	for _, ch := range channels {
		if _, ok := r.brokers[ch]; ok {
			continue
		}
		r.brokers[ch] = New(ch, cfg)
		r.order = append(r.order, ch)
	}
	return r
}

// Get returns the broker for a channel, or nil if the channel is unknown.
func (r *Registry) Get(channel string) *Broker {
	return r.brokers[channel]
}

// Channels returns the channel names in registration order.
func (r *Registry) Channels() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Publish sends a message to one channel. Unknown channels are ignored.
func (r *Registry) Publish(channel string, msg *protocol.Message) {
	if b := r.brokers[channel]; b != nil {
		b.Publish(msg)
	}
}

// Broadcast sends a message to every channel.
func (r *Registry) Broadcast(msg *protocol.Message) {
	for _, ch := range r.order {
		r.brokers[ch].Publish(msg)
	}
}

// GetStats returns a statistics snapshot per channel.
func (r *Registry) GetStats() []Stats {
	stats := make([]Stats, 0, len(r.order))
	for _, ch := range r.order {
		stats = append(stats, r.brokers[ch].GetStats())
	}
	return stats
}

// Close tears down every broker.
func (r *Registry) Close() {
	for _, ch := range r.order {
		r.brokers[ch].Close()
	}
}
