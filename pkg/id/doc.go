// Package id generates the prefixed nanoid identifiers used for every
// Herald entity (signals, channels, deliveries, tunnel connections, ...).
//
// Identifiers are opaque strings of the form "<prefix>_<12-char nanoid>":
//
//	sigID := id.New(id.PrefixSignal) // "sig_V1StGXR8_Z5j"
//
// The random portion comes from crypto/rand through the nanoid URL-safe
// alphabet, so identifiers are safe to expose in URLs and headers.
package id
