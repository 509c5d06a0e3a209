package tunnel

import "errors"

var (
	// ErrInvalidMessage is returned when an inbound frame is not valid JSON
	// or carries an unknown type tag.
	ErrInvalidMessage = errors.New("invalid tunnel message")

	// ErrOutboundFull is returned by TrySend when the agent's bounded
	// outbound channel is full. A full channel means the agent is unhealthy.
	ErrOutboundFull = errors.New("agent outbound channel full")

	// ErrConnectionClosed is returned by TrySend after the connection has
	// been torn down.
	ErrConnectionClosed = errors.New("agent connection closed")

	// Handshake failures. The error text is sent to the agent in the
	// auth_error frame.
	ErrAuthTimeout             = errors.New("authentication timed out")
	ErrInvalidAuthPayload      = errors.New("invalid auth payload")
	ErrMissingToken            = errors.New("missing token")
	ErrInvalidToken            = errors.New("invalid token")
	ErrSubscriberTokenRequired = errors.New("subscriber token required")
)
