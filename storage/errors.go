package storage

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateSubscription is returned when a subscriber already holds an
	// active subscription on the channel.
	ErrDuplicateSubscription = errors.New("active subscription already exists for this channel")
)
