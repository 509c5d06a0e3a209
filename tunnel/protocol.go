package tunnel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/heraldhq/herald/storage"
)

// Message type tags, serialized as the "type" field.
const (
	// client to server
	TypeAuth = "auth"
	TypeAck  = "ack"
	TypePong = "pong"

	// server to client
	TypeAuthOK    = "auth_ok"
	TypeAuthError = "auth_error"
	TypeSignal    = "signal"
	TypePing      = "ping"
)

// ClientMessage is a frame received from an agent. Type discriminates which
// of the optional fields are meaningful.
type ClientMessage struct {
	Type string `json:"type"`

	// auth
	Token string `json:"token,omitempty"`

	// ack
	DeliveryID string `json:"delivery_id,omitempty"`
}

// ParseClientMessage decodes an inbound frame, rejecting unknown or missing
// type tags.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	switch msg.Type {
	case TypeAuth, TypeAck, TypePong:
		return msg, nil
	case "":
		return ClientMessage{}, fmt.Errorf("%w: missing type tag", ErrInvalidMessage)
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
}

// ServerMessage is a frame pushed to an agent.
type ServerMessage struct {
	Type string `json:"type"`

	// auth_ok
	ConnectionID string `json:"connection_id,omitempty"`
	SubscriberID string `json:"subscriber_id,omitempty"`

	// auth_error
	Message string `json:"message,omitempty"`

	// signal
	DeliveryID  string         `json:"delivery_id,omitempty"`
	ChannelID   string         `json:"channel_id,omitempty"`
	ChannelSlug string         `json:"channel_slug,omitempty"`
	Signal      *SignalPayload `json:"signal,omitempty"`
}

// SignalPayload is the signal body carried inside a signal frame.
type SignalPayload struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	Urgency   storage.SignalUrgency `json:"urgency"`
	Metadata  json.RawMessage       `json:"metadata"`
	CreatedAt time.Time             `json:"created_at"`
}

// NewAuthOK builds the handshake success frame.
func NewAuthOK(connectionID, subscriberID string) ServerMessage {
	return ServerMessage{
		Type:         TypeAuthOK,
		ConnectionID: connectionID,
		SubscriberID: subscriberID,
	}
}

// NewAuthError builds the handshake failure frame.
func NewAuthError(message string) ServerMessage {
	return ServerMessage{Type: TypeAuthError, Message: message}
}

// NewSignal builds a signal push frame for a delivery.
func NewSignal(deliveryID string, channel *storage.Channel, signal *storage.Signal) ServerMessage {
	return ServerMessage{
		Type:        TypeSignal,
		DeliveryID:  deliveryID,
		ChannelID:   channel.ID,
		ChannelSlug: channel.Slug,
		Signal: &SignalPayload{
			ID:        signal.ID,
			Title:     signal.Title,
			Body:      signal.Body,
			Urgency:   signal.Urgency,
			Metadata:  signal.Metadata,
			CreatedAt: signal.CreatedAt,
		},
	}
}

// NewPing builds the application-level keep-alive frame.
func NewPing() ServerMessage {
	return ServerMessage{Type: TypePing}
}
