package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignPayload creates the webhook payload signature.
// Format: "sha256=" + lowercase hex of HMAC-SHA256(secret, "{timestamp}.{body}").
// Binding the timestamp into the signed data prevents replay of captured
// payloads; the format matches the scheme used by Stripe and GitHub.
func SignPayload(secret string, timestamp int64, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the provided signature matches the payload.
// Comparison is constant time: hmac.Equal never short-circuits on the first
// differing byte, and a length mismatch is rejected before any byte compare.
func VerifySignature(secret string, timestamp int64, body, signature string) bool {
	expected := SignPayload(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
