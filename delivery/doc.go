// Package delivery executes queued delivery jobs: one job is one attempt
// to hand one signal to one subscription.
//
// Jobs ride two priority lanes, delivery-high and delivery-normal, mapped
// from the signal's urgency. Each lane runs its own worker pool so urgent
// signals are never queued behind bulk traffic.
//
// Transport selection is tunnel first: when the subscriber has a live
// agent connection the signal is pushed through it, and a failed push
// falls through to the subscription's webhook when one is bound. Webhook
// attempts are signed HTTPS POSTs with a 30 second timeout.
//
// Failed attempts follow a fixed backoff schedule (immediate, 1m, 5m,
// 30m, 2h, 2h) via the queue's delayed enqueue; the sixth failure parks
// the delivery in the dead letter queue, from which RetryFromDLQ can
// re-drive it with a fresh attempt counter.
package delivery
