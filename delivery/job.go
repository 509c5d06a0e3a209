package delivery

import "github.com/heraldhq/herald/storage"

// Priority lanes. Urgent signals ride the high lane, which runs its own
// worker pool so bulk traffic never queues ahead of them.
const (
	LaneHigh   = "delivery-high"
	LaneNormal = "delivery-normal"
)

// DeliveryJob is the queued unit of fan-out: one signal to one
// subscription. Attempt starts at 0; retries re-enqueue with attempt+1.
// WebhookID snapshots the subscription's webhook at fan-out time.
type DeliveryJob struct {
	SignalID       string  `json:"signal_id"`
	SubscriptionID string  `json:"subscription_id"`
	WebhookID      *string `json:"webhook_id"`
	Attempt        int     `json:"attempt"`
}

// LaneForUrgency maps a signal's urgency to its delivery lane. Recomputed
// on every retry, so all attempts of one signal ride the same lane.
func LaneForUrgency(u storage.SignalUrgency) string {
	switch u {
	case storage.UrgencyHigh, storage.UrgencyCritical:
		return LaneHigh
	}
	return LaneNormal
}
