package ingest

import "errors"

var (
	// ErrPublisherRequired is returned when a non-publisher credential
	// attempts to publish.
	ErrPublisherRequired = errors.New("publisher credentials required")

	// ErrChannelNotFound is returned when the channel does not exist or
	// has been deleted.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotChannelOwner is returned when the publisher does not own the
	// channel.
	ErrNotChannelOwner = errors.New("channel not owned by publisher")

	// ErrChannelNotActive is returned when publishing to a paused channel.
	ErrChannelNotActive = errors.New("channel not active")

	// ErrTitleAndBodyRequired is returned when title or body is empty
	// after trimming.
	ErrTitleAndBodyRequired = errors.New("title and body are required")

	// ErrInvalidUrgency is returned for an unsupported urgency value.
	ErrInvalidUrgency = errors.New("invalid urgency")
)
