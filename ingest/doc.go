// Package ingest accepts published signals and fans them out.
//
// PublishSignal validates the publisher's claim to the channel, persists
// the signal, then enqueues one delivery job per active subscription on
// the lane chosen by the signal's urgency. Fan-out is queued rather than
// inline so publish latency stays flat as the subscriber count grows, and
// so retry and priority policy live in one place, the delivery worker.
//
// Enqueueing is best-effort per subscription: one failed enqueue is
// logged and the rest of the fan-out proceeds.
package ingest
