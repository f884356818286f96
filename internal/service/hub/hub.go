// Package hub fans outbound messages out to every connected client.
package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"indic-speech-stream-service/internal/observability/metrics"
)

// Conn is a client connection able to deliver one text frame.
// Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(payload []byte) error
}

// Hub keeps the set of live connections in registration order.
type Hub struct {
	mu      sync.RWMutex
	conns   []Conn
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates an empty hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// Register adds conn. Registering the same connection twice is a no-op.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		if c == conn {
			return
		}
	}
	h.conns = append(h.conns, conn)
	h.logger.Info().
		Str("conn_id", conn.ID()).
		Int("connections", len(h.conns)).
		Msg("Client registered")
}

// Unregister removes conn if present.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range h.conns {
		if c == conn {
			h.conns = append(h.conns[:i], h.conns[i+1:]...)
			h.logger.Info().
				Str("conn_id", conn.ID()).
				Int("connections", len(h.conns)).
				Msg("Client unregistered")
			return
		}
	}
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast serializes msg once and sends it to every connection registered
// at the time of the call. A failed send is logged and counted; the
// connection stays registered until its own read loop ends. The returned
// error only reports serialization failures.
func (h *Hub) Broadcast(msgType string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}

	h.mu.RLock()
	snapshot := make([]Conn, len(h.conns))
	copy(snapshot, h.conns)
	h.mu.RUnlock()

	failures := 0
	for _, c := range snapshot {
		if err := c.Send(payload); err != nil {
			failures++
			h.logger.Warn().
				Err(err).
				Str("conn_id", c.ID()).
				Str("type", msgType).
				Msg("Failed to deliver broadcast")
		}
	}
	h.metrics.RecordBroadcast(msgType, failures)
	return nil
}

// Send serializes msg and delivers it to conn only.
func (h *Hub) Send(conn Conn, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return conn.Send(payload)
}
