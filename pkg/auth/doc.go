// Package auth provides Herald's authentication primitives: API key
// generation and hashing, and HMAC-SHA256 payload signing for webhook
// integrity.
//
// Raw API keys are "<owner prefix><24-char nanoid>" where the owner prefix
// is one of [PublisherKeyPrefix] or [SubscriberKeyPrefix]. Raw key material
// is never persisted; storage keeps only the SHA-256 hash (the lookup key)
// and the first 12 characters for display.
//
// Webhook payloads are signed with a per-subscriber secret:
//
//	sig := auth.SignPayload(secret, time.Now().Unix(), body)
//	// sig == "sha256=...", sent as X-Herald-Signature
//
// Verification uses a constant-time comparison to avoid timing attacks.
package auth
