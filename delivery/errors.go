package delivery

import "errors"

var (
	// ErrNoDeliveryMethod is returned when a subscription has neither a
	// connected agent nor a webhook to deliver through.
	ErrNoDeliveryMethod = errors.New("no delivery method available")

	// ErrDeadLetterResolved is returned when retrying a dead letter entry
	// that has already been resolved.
	ErrDeadLetterResolved = errors.New("dead letter entry already resolved")
)
