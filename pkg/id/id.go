package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity kind prefixes used across the platform. Identifiers follow the
// "<prefix>_<12-char nanoid>" scheme.
const (
	PrefixSignal       = "sig"
	PrefixChannel      = "ch"
	PrefixSubscription = "sub"
	PrefixSubscriber   = "sub"
	PrefixPublisher    = "pub"
	PrefixWebhook      = "wh"
	PrefixDelivery     = "del"
	PrefixDeadLetter   = "dlq"
	PrefixConnection   = "conn"
	PrefixAPIKey       = "key"
)

// DefaultLength is the random portion length for entity identifiers.
const DefaultLength = 12

// New returns a prefixed identifier like "sig_V1StGXR8_Z5j".
// The random portion uses the nanoid URL-safe alphabet from crypto/rand.
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, gonanoid.Must(DefaultLength))
}

// Random returns n characters of the nanoid URL-safe alphabet.
// Used for secret material such as raw API keys.
func Random(n int) (string, error) {
	s, err := gonanoid.New(n)
	if err != nil {
		return "", fmt.Errorf("failed to generate random id: %w", err)
	}
	return s, nil
}
