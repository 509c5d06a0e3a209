package storage

import (
	"encoding/json"
	"time"
)

// SignalUrgency controls which delivery lane a signal's jobs ride.
type SignalUrgency string

const (
	UrgencyLow      SignalUrgency = "low"
	UrgencyNormal   SignalUrgency = "normal"
	UrgencyHigh     SignalUrgency = "high"
	UrgencyCritical SignalUrgency = "critical"
)

func (u SignalUrgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// SignalStatus marks a signal active or soft-deleted.
type SignalStatus string

const (
	SignalActive  SignalStatus = "active"
	SignalDeleted SignalStatus = "deleted"
)

// ChannelStatus gates whether a channel accepts new signals.
type ChannelStatus string

const (
	ChannelActive  ChannelStatus = "active"
	ChannelPaused  ChannelStatus = "paused"
	ChannelDeleted ChannelStatus = "deleted"
)

// SubscriptionStatus marks a subscription's lifecycle state. Only active
// subscriptions participate in fan-out.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPaused   SubscriptionStatus = "paused"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// WebhookStatus marks a webhook endpoint's lifecycle state.
type WebhookStatus string

const (
	WebhookActive   WebhookStatus = "active"
	WebhookPaused   WebhookStatus = "paused"
	WebhookDisabled WebhookStatus = "disabled"
)

// DeliveryMode records which transport carried a delivery attempt.
type DeliveryMode string

const (
	ModeAgent   DeliveryMode = "agent"
	ModeWebhook DeliveryMode = "webhook"
)

// DeliveryStatus is a delivery attempt's lifecycle: created pending, then
// terminal success or failed.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// AccountStatus marks publisher and subscriber accounts.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountDeleted   AccountStatus = "deleted"
)

// APIKeyOwner distinguishes publisher keys from subscriber keys.
type APIKeyOwner string

const (
	OwnerPublisher  APIKeyOwner = "publisher"
	OwnerSubscriber APIKeyOwner = "subscriber"
)

func (o APIKeyOwner) Valid() bool {
	return o == OwnerPublisher || o == OwnerSubscriber
}

// APIKeyStatus marks an API key's lifecycle state. Only active keys
// authenticate.
type APIKeyStatus string

const (
	APIKeyActive  APIKeyStatus = "active"
	APIKeyRevoked APIKeyStatus = "revoked"
	APIKeyExpired APIKeyStatus = "expired"
)

// Signal is the notification unit published to a channel. Counters are
// maintained by delivery workers with atomic relative deltas, so
// DeliveryCount = DeliveredCount + FailedCount holds across any worker
// interleaving.
type Signal struct {
	ID             string
	ChannelID      string
	Title          string
	Body           string
	Urgency        SignalUrgency
	Metadata       json.RawMessage
	DeliveryCount  int
	DeliveredCount int
	FailedCount    int
	Status         SignalStatus
	CreatedAt      time.Time
}

// Channel is a named broadcast topic owned by a publisher.
type Channel struct {
	ID              string
	PublisherID     string
	Slug            string
	DisplayName     string
	Description     *string
	Category        *string
	Status          ChannelStatus
	IsPublic        bool
	SignalCount     int
	SubscriberCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Subscription binds a subscriber to a channel. WebhookID is nil for
// tunnel-only subscriptions; the delivery worker uses its absence as the
// signal that failed tunnel sends may be retried.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	WebhookID    *string
	Status       SubscriptionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Webhook is a subscriber-owned HTTPS endpoint. FailureCount resets to zero
// on any successful delivery.
type Webhook struct {
	ID            string
	SubscriberID  string
	URL           string
	Name          string
	Token         *string
	Status        WebhookStatus
	FailureCount  int
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Subscriber is a receiving account. WebhookSecret signs outbound payloads;
// it is never logged and never returned through APIs.
type Subscriber struct {
	ID                   string
	Name                 string
	Email                string
	WebhookSecret        string
	DeliveryMode         DeliveryMode
	AgentLastConnectedAt *time.Time
	Status               AccountStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Publisher is a sending account that owns channels.
type Publisher struct {
	ID        string
	Name      string
	Email     string
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Delivery records a single attempt to hand a signal to a subscriber.
// SignalID, SubscriptionID, Mode and Attempt are immutable after creation.
type Delivery struct {
	ID             string
	SignalID       string
	SubscriptionID string
	WebhookID      *string
	Mode           DeliveryMode
	Attempt        int
	Status         DeliveryStatus
	StatusCode     *int
	ErrorMessage   *string
	LatencyMs      *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// APIKey holds a hashed credential. Raw key material is never persisted;
// lookup is exclusively by KeyHash.
type APIKey struct {
	ID         string
	KeyHash    string
	KeyPrefix  string
	OwnerType  APIKeyOwner
	OwnerID    string
	Name       *string
	Scopes     []string
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	Status     APIKeyStatus
	CreatedAt  time.Time
}

// DeadLetterEntry parks a delivery that exhausted its retry schedule,
// carrying the last payload and the per-attempt error history for manual
// recovery.
type DeadLetterEntry struct {
	ID             string
	DeliveryID     string
	SignalID       string
	SubscriptionID string
	Payload        json.RawMessage
	ErrorHistory   json.RawMessage
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}
