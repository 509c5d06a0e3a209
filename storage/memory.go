package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-memory implementation of the Storage method set, used by
// engine tests. It mirrors the Postgres behaviour including default column
// values, counter deltas and the active-subscription uniqueness rule.
type Memory struct {
	mu            sync.Mutex
	signals       map[string]*Signal
	channels      map[string]*Channel
	subscriptions map[string]*Subscription
	webhooks      map[string]*Webhook
	subscribers   map[string]*Subscriber
	publishers    map[string]*Publisher
	deliveries    map[string]*Delivery
	apiKeys       map[string]*APIKey
	deadLetters   map[string]*DeadLetterEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		signals:       make(map[string]*Signal),
		channels:      make(map[string]*Channel),
		subscriptions: make(map[string]*Subscription),
		webhooks:      make(map[string]*Webhook),
		subscribers:   make(map[string]*Subscriber),
		publishers:    make(map[string]*Publisher),
		deliveries:    make(map[string]*Delivery),
		apiKeys:       make(map[string]*APIKey),
		deadLetters:   make(map[string]*DeadLetterEntry),
	}
}

// --- signals ---

func (m *Memory) CreateSignal(_ context.Context, sig *Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[sig.ChannelID]; !ok {
		return ErrNotFound
	}

	sig.Status = SignalActive
	sig.CreatedAt = time.Now().UTC()
	cp := *sig
	m.signals[sig.ID] = &cp

	ch := m.channels[sig.ChannelID]
	ch.SignalCount++
	ch.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) GetSignal(_ context.Context, id string) (*Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig, ok := m.signals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sig
	return &cp, nil
}

func (m *Memory) ListSignalsByChannel(_ context.Context, channelID string, limit int, cursor string) ([]Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Signal
	for _, sig := range m.signals {
		if sig.ChannelID != channelID {
			continue
		}
		if cursor != "" && sig.ID >= cursor {
			continue
		}
		out = append(out, *sig)
	}
	slices.SortFunc(out, func(a, b Signal) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) IncrementSignalCounts(_ context.Context, signalID string, delivered, failed, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig, ok := m.signals[signalID]
	if !ok {
		return ErrNotFound
	}
	sig.DeliveredCount += delivered
	sig.FailedCount += failed
	sig.DeliveryCount += total
	return nil
}

func (m *Memory) UpdateSignalStatus(_ context.Context, id string, status SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig, ok := m.signals[id]
	if !ok {
		return ErrNotFound
	}
	sig.Status = status
	return nil
}

// --- channels ---

func (m *Memory) CreateChannel(_ context.Context, ch *Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch.Status == "" {
		ch.Status = ChannelActive
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now
	cp := *ch
	m.channels[ch.ID] = &cp
	return nil
}

func (m *Memory) GetChannel(_ context.Context, id string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (m *Memory) IncrementChannelSignalCount(_ context.Context, channelID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	ch.SignalCount += delta
	return nil
}

func (m *Memory) IncrementChannelSubscriberCount(_ context.Context, channelID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	ch.SubscriberCount += delta
	return nil
}

// --- subscriptions ---

func (m *Memory) CreateSubscription(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.subscriptions {
		if existing.SubscriberID == sub.SubscriberID &&
			existing.ChannelID == sub.ChannelID &&
			existing.Status == SubscriptionActive {
			return ErrDuplicateSubscription
		}
	}

	sub.Status = SubscriptionActive
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	cp := *sub
	m.subscriptions[sub.ID] = &cp
	return nil
}

func (m *Memory) GetSubscription(_ context.Context, id string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *Memory) ListActiveSubscriptionsByChannel(_ context.Context, channelID string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Subscription
	for _, sub := range m.subscriptions {
		if sub.ChannelID == channelID && sub.Status == SubscriptionActive {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptionsBySubscriber(_ context.Context, subscriberID string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Subscription
	for _, sub := range m.subscriptions {
		if sub.SubscriberID == subscriberID {
			out = append(out, *sub)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateSubscriptionStatus(_ context.Context, id string, status SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// --- webhooks ---

func (m *Memory) CreateWebhook(_ context.Context, wh *Webhook) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wh.Status = WebhookActive
	now := time.Now().UTC()
	wh.CreatedAt = now
	wh.UpdatedAt = now
	cp := *wh
	m.webhooks[wh.ID] = &cp
	return nil
}

func (m *Memory) GetWebhook(_ context.Context, id string) (*Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wh, ok := m.webhooks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *wh
	return &cp, nil
}

func (m *Memory) ListWebhooksBySubscriber(_ context.Context, subscriberID string) ([]Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Webhook
	for _, wh := range m.webhooks {
		if wh.SubscriberID == subscriberID {
			out = append(out, *wh)
		}
	}
	slices.SortFunc(out, func(a, b Webhook) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateWebhookSuccess(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wh, ok := m.webhooks[id]
	if !ok {
		return ErrNotFound
	}
	wh.FailureCount = 0
	wh.LastSuccessAt = &at
	wh.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateWebhookFailure(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wh, ok := m.webhooks[id]
	if !ok {
		return ErrNotFound
	}
	wh.FailureCount++
	wh.LastFailureAt = &at
	wh.UpdatedAt = time.Now().UTC()
	return nil
}

// --- subscribers and publishers ---

// AddSubscriber seeds a subscriber account.
func (m *Memory) AddSubscriber(sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.Status == "" {
		sub.Status = AccountActive
	}
	cp := *sub
	m.subscribers[sub.ID] = &cp
}

func (m *Memory) GetSubscriber(_ context.Context, id string) (*Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *Memory) UpdateAgentLastConnectedAt(_ context.Context, subscriberID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscribers[subscriberID]
	if !ok {
		return ErrNotFound
	}
	sub.AgentLastConnectedAt = &at
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// AddPublisher seeds a publisher account.
func (m *Memory) AddPublisher(pub *Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pub.Status == "" {
		pub.Status = AccountActive
	}
	cp := *pub
	m.publishers[pub.ID] = &cp
}

func (m *Memory) GetPublisher(_ context.Context, id string) (*Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pub, ok := m.publishers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *pub
	return &cp, nil
}

// --- deliveries ---

func (m *Memory) CreateDelivery(_ context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d.Status = DeliveryPending
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *Memory) UpdateDeliveryStatus(_ context.Context, id string, status DeliveryStatus, statusCode *int, errorMessage *string, latencyMs *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.StatusCode = statusCode
	d.ErrorMessage = errorMessage
	d.LatencyMs = latencyMs
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) GetDelivery(_ context.Context, id string) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deliveries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListDeliveriesByWebhook(_ context.Context, webhookID string, limit int, cursor string) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Delivery
	for _, d := range m.deliveries {
		if d.WebhookID == nil || *d.WebhookID != webhookID {
			continue
		}
		if cursor != "" && d.ID >= cursor {
			continue
		}
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b Delivery) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListDeliveriesBySignal(_ context.Context, signalID string) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Delivery
	for _, d := range m.deliveries {
		if d.SignalID == signalID {
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b Delivery) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// --- api keys ---

func (m *Memory) CreateAPIKey(_ context.Context, key *APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key.Status == "" {
		key.Status = APIKeyActive
	}
	key.CreatedAt = time.Now().UTC()
	cp := *key
	m.apiKeys[key.ID] = &cp
	return nil
}

func (m *Memory) GetAPIKeyByHash(_ context.Context, keyHash string) (*APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.apiKeys {
		if key.KeyHash != keyHash || key.Status != APIKeyActive {
			continue
		}
		if key.ExpiresAt != nil && !key.ExpiresAt.After(time.Now()) {
			continue
		}
		cp := *key
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) TouchAPIKeyLastUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.apiKeys[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	key.LastUsedAt = &now
	return nil
}

func (m *Memory) RevokeAPIKey(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.apiKeys[id]
	if !ok {
		return ErrNotFound
	}
	key.Status = APIKeyRevoked
	return nil
}

// --- dead letter queue ---

func (m *Memory) CreateDeadLetter(_ context.Context, entry *DeadLetterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.CreatedAt = time.Now().UTC()
	cp := *entry
	m.deadLetters[entry.ID] = &cp
	return nil
}

func (m *Memory) ListUnresolvedDeadLetters(_ context.Context) ([]DeadLetterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []DeadLetterEntry
	for _, entry := range m.deadLetters {
		if entry.ResolvedAt == nil {
			out = append(out, *entry)
		}
	}
	slices.SortFunc(out, func(a, b DeadLetterEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetDeadLetter(_ context.Context, id string) (*DeadLetterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.deadLetters[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (m *Memory) ResolveDeadLetter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.deadLetters[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	entry.ResolvedAt = &now
	return nil
}
