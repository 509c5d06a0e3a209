package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/heraldhq/herald/pkg/id"
)

// API key prefixes identify the owning plane of a raw key at a glance.
const (
	PublisherKeyPrefix  = "hld_pub_"
	SubscriberKeyPrefix = "hld_sub_"
)

const (
	// rawKeyLength is the random portion appended to the owner prefix.
	rawKeyLength = 24
	// visiblePrefixLength is how much of the raw key is stored for display.
	// Enough to recognise a key in a dashboard without revealing material.
	visiblePrefixLength = 12
)

// GenerateAPIKey mints a raw API key for the given owner prefix and returns
// the raw key, its SHA-256 hash, and the visible prefix.
//
// The raw key is shown to the caller exactly once; only the hash and the
// visible prefix are ever persisted. Lookup is exclusively by hash.
func GenerateAPIKey(prefix string) (raw, hash, keyPrefix string, err error) {
	random, err := id.Random(rawKeyLength)
	if err != nil {
		return "", "", "", err
	}

	raw = prefix + random
	return raw, HashAPIKey(raw), raw[:visiblePrefixLength], nil
}

// HashAPIKey returns the lowercase hex SHA-256 digest of a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
