package tunnel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heraldhq/herald/pkg/auth"
	"github.com/heraldhq/herald/pkg/id"
	"github.com/heraldhq/herald/pkg/logger"
	"github.com/heraldhq/herald/storage"
)

const (
	// writeWait bounds a single frame write to the peer.
	writeWait = 10 * time.Second

	// authWait bounds how long a fresh connection may sit unauthenticated.
	authWait = 10 * time.Second

	// pingPeriod is the application-level keep-alive interval.
	pingPeriod = 30 * time.Second

	// maxMessageSize bounds inbound frames; agents only send small control
	// messages.
	maxMessageSize = 4096
)

// SessionStorage defines the persistence operations a tunnel session needs.
type SessionStorage interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*storage.APIKey, error)
	TouchAPIKeyLastUsed(ctx context.Context, id string) error
	UpdateAgentLastConnectedAt(ctx context.Context, subscriberID string, at time.Time) error
}

// Handler upgrades HTTP requests to agent tunnel sessions.
type Handler struct {
	registry *Registry
	store    SessionStorage
	presence *PresenceStore
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPresence enables Redis-backed agent presence tracking.
func WithPresence(p *PresenceStore) HandlerOption {
	return func(h *Handler) { h.presence = p }
}

// WithSessionLogger sets the handler's logger.
func WithSessionLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// NewHandler creates a tunnel handler bound to a registry and storage.
func NewHandler(registry *Registry, store SessionStorage, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		store:    store,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Agents are not browsers; origin checking does not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and runs the session to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("tunnel upgrade failed", logger.Error(err))
		return
	}
	h.handleSession(r.Context(), ws)
}

// handleSession drives one connection through auth, steady state and
// teardown.
func (h *Handler) handleSession(ctx context.Context, ws *websocket.Conn) {
	defer ws.Close() //nolint:errcheck

	ws.SetReadLimit(maxMessageSize)

	conn, err := h.authenticate(ctx, ws)
	if err != nil {
		// auth_error is written directly; there is no writer loop yet.
		h.writeMessage(ws, NewAuthError(err.Error()))
		return
	}

	log := h.logger.With(
		logger.SubscriberID(conn.SubscriberID),
		logger.ConnectionID(conn.ConnectionID),
	)

	if displaced := h.registry.Register(conn); displaced != nil {
		log.Info("tunnel reconnected, displacing previous connection",
			logger.ConnectionID(displaced.ConnectionID))
	}

	now := time.Now().UTC()
	if err := h.store.UpdateAgentLastConnectedAt(ctx, conn.SubscriberID, now); err != nil {
		log.Warn("failed to update agent_last_connected_at", logger.Error(err))
	}
	if h.presence != nil {
		if err := h.presence.MarkOnline(ctx, conn.SubscriberID); err != nil {
			log.Warn("failed to mark agent presence", logger.Error(err))
		}
	}

	// The buffer was just created; this cannot fail.
	_ = conn.TrySend(NewAuthOK(conn.ConnectionID, conn.SubscriberID))

	writerDone := make(chan struct{})
	go h.writeLoop(ws, conn, writerDone)

	pingDone := make(chan struct{})
	go h.pingLoop(ctx, conn, pingDone)

	log.Info("tunnel connected")

	h.readLoop(ws, log)

	h.registry.Unregister(conn)
	close(pingDone)
	if h.presence != nil {
		if err := h.presence.MarkOffline(context.WithoutCancel(ctx), conn.SubscriberID); err != nil {
			log.Warn("failed to clear agent presence", logger.Error(err))
		}
	}
	conn.Close()
	<-writerDone

	log.Info("tunnel disconnected")
}

// authenticate consumes the first frame, which must be an auth message
// carrying an active subscriber API key.
func (h *Handler) authenticate(ctx context.Context, ws *websocket.Conn) (*AgentConnection, error) {
	if err := ws.SetReadDeadline(time.Now().Add(authWait)); err != nil {
		return nil, ErrAuthTimeout
	}

	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, ErrAuthTimeout
	}

	// Clear the handshake deadline; transport ping/pong owns liveness.
	if err := ws.SetReadDeadline(time.Time{}); err != nil {
		return nil, ErrAuthTimeout
	}

	msg, err := ParseClientMessage(data)
	if err != nil || msg.Type != TypeAuth {
		return nil, ErrInvalidAuthPayload
	}
	if msg.Token == "" {
		return nil, ErrMissingToken
	}

	key, err := h.store.GetAPIKeyByHash(ctx, auth.HashAPIKey(msg.Token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if key.OwnerType != storage.OwnerSubscriber {
		return nil, ErrSubscriberTokenRequired
	}

	if err := h.store.TouchAPIKeyLastUsed(ctx, key.ID); err != nil {
		h.logger.Warn("failed to touch api key", logger.Error(err))
	}

	return NewAgentConnection(id.New(id.PrefixConnection), key.OwnerID), nil
}

// readLoop consumes frames until the peer closes or errors. Acks are
// informational; pongs are consumed silently; auth after the handshake is a
// protocol violation that is logged and ignored.
func (h *Handler) readLoop(ws *websocket.Conn, log *slog.Logger) {
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("tunnel read error", logger.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		msg, err := ParseClientMessage(data)
		if err != nil {
			log.Warn("invalid tunnel client message", logger.Error(err))
			continue
		}

		switch msg.Type {
		case TypeAck:
			log.Info("tunnel delivery acknowledged", logger.DeliveryID(msg.DeliveryID))
		case TypePong:
		case TypeAuth:
			log.Warn("unexpected auth message on live tunnel")
		}
	}
}

// writeLoop drains the outbound buffer onto the wire. It exits when the
// buffer is closed or a write fails; a failed write also unblocks the read
// loop by closing the socket.
func (h *Handler) writeLoop(ws *websocket.Conn, conn *AgentConnection, done chan<- struct{}) {
	defer close(done)

	for msg := range conn.Outbound() {
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Warn("failed to serialize tunnel message", logger.Error(err))
			continue
		}

		if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			ws.Close() //nolint:errcheck
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			ws.Close() //nolint:errcheck
			return
		}
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// pingLoop pushes an application-level ping every pingPeriod and refreshes
// the presence TTL. It stops when the session tears down.
func (h *Handler) pingLoop(ctx context.Context, conn *AgentConnection, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.TrySend(NewPing()); err != nil {
				return
			}
			if h.presence != nil {
				if err := h.presence.Refresh(ctx, conn.SubscriberID); err != nil {
					h.logger.Warn("failed to refresh agent presence", logger.Error(err))
				}
			}
		}
	}
}

// writeMessage writes a single frame outside the writer loop, used only
// before the session is live.
func (h *Handler) writeMessage(ws *websocket.Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.TextMessage, data)
}
