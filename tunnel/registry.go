package tunnel

import (
	"sync"
	"time"
)

// outboundCapacity bounds each agent's outbound buffer. Workers use
// non-blocking sends, so a full buffer surfaces as a delivery failure
// instead of stalling the worker pool behind a slow agent.
const outboundCapacity = 64

// AgentConnection is a live tunnel to one subscriber's agent. It is shared
// between the session handler (which drains outbound) and delivery workers
// (which push into it); the channel is the only communication path.
type AgentConnection struct {
	ConnectionID string
	SubscriberID string
	ConnectedAt  time.Time

	mu       sync.RWMutex
	outbound chan ServerMessage
	closed   bool
}

// NewAgentConnection creates a connection with a bounded outbound buffer.
func NewAgentConnection(connectionID, subscriberID string) *AgentConnection {
	return &AgentConnection{
		ConnectionID: connectionID,
		SubscriberID: subscriberID,
		ConnectedAt:  time.Now().UTC(),
		outbound:     make(chan ServerMessage, outboundCapacity),
	}
}

// TrySend pushes a message without blocking. A full buffer or a closed
// connection returns immediately with an error.
func (c *AgentConnection) TrySend(msg ServerMessage) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.outbound <- msg:
		return nil
	default:
		return ErrOutboundFull
	}
}

// Outbound returns the receive side of the connection's buffer. It is
// closed by Close, terminating the session's writer loop.
func (c *AgentConnection) Outbound() <-chan ServerMessage {
	return c.outbound
}

// Close shuts the outbound channel. Idempotent; senders observe
// ErrConnectionClosed afterwards.
func (c *AgentConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.outbound)
}

// Registry maps subscriber ids to their live agent connection. Many readers
// (delivery workers), occasional writers (session handlers); the lock is
// never held across a channel send.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*AgentConnection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*AgentConnection)}
}

// Register inserts a connection, displacing any prior connection for the
// same subscriber (last writer wins). The displaced connection, if any, is
// returned so the caller can close it; its session discovers the
// replacement when its outbound send fails.
func (r *Registry) Register(conn *AgentConnection) *AgentConnection {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.agents[conn.SubscriberID]
	r.agents[conn.SubscriberID] = conn
	return prev
}

// Unregister removes the given connection. A no-op when the subscriber is
// unknown or a newer connection has already replaced this one, so a
// displaced session's teardown never evicts its successor.
func (r *Registry) Unregister(conn *AgentConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.agents[conn.SubscriberID]; ok && current.ConnectionID == conn.ConnectionID {
		delete(r.agents, conn.SubscriberID)
	}
}

// Get returns the live connection for a subscriber, or nil.
func (r *Registry) Get(subscriberID string) *AgentConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[subscriberID]
}

// Len reports the number of connected agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
