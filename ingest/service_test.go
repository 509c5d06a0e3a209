package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/delivery"
	"github.com/heraldhq/herald/ingest"
	"github.com/heraldhq/herald/pkg/queue"
	"github.com/heraldhq/herald/storage"
)

type fixture struct {
	store   *storage.Memory
	qstore  *queue.MemoryStorage
	service *ingest.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemory()
	qstore := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(qstore)
	require.NoError(t, err)

	return &fixture{
		store:   store,
		qstore:  qstore,
		service: ingest.NewService(store, enq),
	}
}

func (f *fixture) seedChannel(t *testing.T, status storage.ChannelStatus) {
	t.Helper()
	ctx := context.Background()

	f.store.AddPublisher(&storage.Publisher{ID: "pub_1", Name: "Acme"})
	require.NoError(t, f.store.CreateChannel(ctx, &storage.Channel{
		ID: "ch_1", PublisherID: "pub_1", Slug: "deploys", DisplayName: "Deploys",
		Status: status,
	}))
}

// seedSubscriptions adds n active subscriptions, the odd ones bound to a
// webhook, plus one paused subscription that must not receive jobs.
func (f *fixture) seedSubscriptions(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < n; i++ {
		subscriberID := fmt.Sprintf("sub_ag%d", i)
		f.store.AddSubscriber(&storage.Subscriber{ID: subscriberID, WebhookSecret: "k"})

		var webhookID *string
		if i%2 == 1 {
			whID := fmt.Sprintf("wh_%d", i)
			require.NoError(t, f.store.CreateWebhook(ctx, &storage.Webhook{
				ID: whID, SubscriberID: subscriberID, URL: "https://hooks.example.com/" + whID, Name: whID,
			}))
			webhookID = &whID
		}

		require.NoError(t, f.store.CreateSubscription(ctx, &storage.Subscription{
			ID:           fmt.Sprintf("sub_sc%d", i),
			SubscriberID: subscriberID,
			ChannelID:    "ch_1",
			WebhookID:    webhookID,
		}))
	}

	f.store.AddSubscriber(&storage.Subscriber{ID: "sub_paused", WebhookSecret: "k"})
	require.NoError(t, f.store.CreateSubscription(ctx, &storage.Subscription{
		ID: "sub_scp", SubscriberID: "sub_paused", ChannelID: "ch_1",
	}))
	require.NoError(t, f.store.UpdateSubscriptionStatus(ctx, "sub_scp", storage.SubscriptionPaused))
}

func publisherCtx() ingest.AuthContext {
	return ingest.AuthContext{OwnerType: storage.OwnerPublisher, OwnerID: "pub_1"}
}

func TestPublishSignalFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedChannel(t, storage.ChannelActive)
	f.seedSubscriptions(t, 3)

	res, err := f.service.PublishSignal(context.Background(), "ch_1", publisherCtx(), ingest.PublishInput{
		Title: "hi", Body: "there",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SignalID, "sig_"))
	assert.Equal(t, "ch_1", res.ChannelID)
	assert.Equal(t, storage.SignalActive, res.Status)
	assert.WithinDuration(t, time.Now(), res.CreatedAt, 5*time.Second)

	// Default urgency rides the normal lane; the paused subscription gets
	// no job.
	assert.Empty(t, f.qstore.JobsInLane(delivery.LaneHigh))
	jobs := f.qstore.JobsInLane(delivery.LaneNormal)
	require.Len(t, jobs, 3)

	seen := map[string]delivery.DeliveryJob{}
	for _, job := range jobs {
		assert.Equal(t, "delivery.DeliveryJob", job.Kind)
		var payload delivery.DeliveryJob
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, res.SignalID, payload.SignalID)
		assert.Equal(t, 0, payload.Attempt)
		seen[payload.SubscriptionID] = payload
	}
	require.Len(t, seen, 3)
	assert.Nil(t, seen["sub_sc0"].WebhookID)
	require.NotNil(t, seen["sub_sc1"].WebhookID)
	assert.Equal(t, "wh_1", *seen["sub_sc1"].WebhookID)
	assert.NotContains(t, seen, "sub_scp")

	sig, err := f.store.GetSignal(context.Background(), res.SignalID)
	require.NoError(t, err)
	assert.Equal(t, storage.UrgencyNormal, sig.Urgency)
	assert.Equal(t, json.RawMessage(`{}`), sig.Metadata)

	ch, err := f.store.GetChannel(context.Background(), "ch_1")
	require.NoError(t, err)
	assert.Equal(t, 1, ch.SignalCount)
}

func TestPublishSignalHighUrgencyLane(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedChannel(t, storage.ChannelActive)
	f.seedSubscriptions(t, 2)

	_, err := f.service.PublishSignal(context.Background(), "ch_1", publisherCtx(), ingest.PublishInput{
		Title: "x", Body: "y", Urgency: storage.UrgencyCritical,
	})
	require.NoError(t, err)

	assert.Empty(t, f.qstore.JobsInLane(delivery.LaneNormal))
	assert.Len(t, f.qstore.JobsInLane(delivery.LaneHigh), 2)
}

func TestPublishSignalTrimsTitleAndBody(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedChannel(t, storage.ChannelActive)

	res, err := f.service.PublishSignal(context.Background(), "ch_1", publisherCtx(), ingest.PublishInput{
		Title: "  rollout done  ", Body: "\tv2 live\n",
	})
	require.NoError(t, err)

	sig, err := f.store.GetSignal(context.Background(), res.SignalID)
	require.NoError(t, err)
	assert.Equal(t, "rollout done", sig.Title)
	assert.Equal(t, "v2 live", sig.Body)
}

func TestPublishSignalValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  storage.ChannelStatus
		authCtx ingest.AuthContext
		input   ingest.PublishInput
		wantErr error
	}{
		{
			name:    "subscriber token forbidden",
			status:  storage.ChannelActive,
			authCtx: ingest.AuthContext{OwnerType: storage.OwnerSubscriber, OwnerID: "sub_ag1"},
			input:   ingest.PublishInput{Title: "t", Body: "b"},
			wantErr: ingest.ErrPublisherRequired,
		},
		{
			name:    "foreign publisher",
			status:  storage.ChannelActive,
			authCtx: ingest.AuthContext{OwnerType: storage.OwnerPublisher, OwnerID: "pub_other"},
			input:   ingest.PublishInput{Title: "t", Body: "b"},
			wantErr: ingest.ErrNotChannelOwner,
		},
		{
			name:    "paused channel",
			status:  storage.ChannelPaused,
			authCtx: publisherCtx(),
			input:   ingest.PublishInput{Title: "t", Body: "b"},
			wantErr: ingest.ErrChannelNotActive,
		},
		{
			name:    "deleted channel",
			status:  storage.ChannelDeleted,
			authCtx: publisherCtx(),
			input:   ingest.PublishInput{Title: "t", Body: "b"},
			wantErr: ingest.ErrChannelNotFound,
		},
		{
			name:    "blank title",
			status:  storage.ChannelActive,
			authCtx: publisherCtx(),
			input:   ingest.PublishInput{Title: "   ", Body: "b"},
			wantErr: ingest.ErrTitleAndBodyRequired,
		},
		{
			name:    "blank body",
			status:  storage.ChannelActive,
			authCtx: publisherCtx(),
			input:   ingest.PublishInput{Title: "t", Body: ""},
			wantErr: ingest.ErrTitleAndBodyRequired,
		},
		{
			name:    "invalid urgency",
			status:  storage.ChannelActive,
			authCtx: publisherCtx(),
			input:   ingest.PublishInput{Title: "t", Body: "b", Urgency: "urgent"},
			wantErr: ingest.ErrInvalidUrgency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.seedChannel(t, tt.status)

			_, err := f.service.PublishSignal(context.Background(), "ch_1", tt.authCtx, tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			// No signal row and no fan-out on any rejection.
			signals, lerr := f.store.ListSignalsByChannel(context.Background(), "ch_1", 10, "")
			require.NoError(t, lerr)
			assert.Empty(t, signals)
			assert.Empty(t, f.qstore.JobsInLane(delivery.LaneNormal))
			assert.Empty(t, f.qstore.JobsInLane(delivery.LaneHigh))
		})
	}
}

func TestPublishSignalUnknownChannel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.service.PublishSignal(context.Background(), "ch_missing", publisherCtx(), ingest.PublishInput{
		Title: "t", Body: "b",
	})
	require.ErrorIs(t, err, ingest.ErrChannelNotFound)
}

// failingEnqueuer rejects jobs for one subscription and delegates the rest.
type failingEnqueuer struct {
	inner  ingest.Enqueuer
	reject string
}

func (e *failingEnqueuer) Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error {
	if job, ok := payload.(delivery.DeliveryJob); ok && job.SubscriptionID == e.reject {
		return errors.New("lane unavailable")
	}
	return e.inner.Enqueue(ctx, payload, opts...)
}

func TestPublishSignalEnqueueFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	qstore := queue.NewMemoryStorage()
	enq, err := queue.NewEnqueuer(qstore)
	require.NoError(t, err)

	service := ingest.NewService(store, &failingEnqueuer{inner: enq, reject: "sub_sc1"})

	f := &fixture{store: store, qstore: qstore, service: service}
	f.seedChannel(t, storage.ChannelActive)
	f.seedSubscriptions(t, 3)

	res, err := f.service.PublishSignal(context.Background(), "ch_1", publisherCtx(), ingest.PublishInput{
		Title: "t", Body: "b",
	})
	require.NoError(t, err)

	// One subscription's enqueue failed; the other two still got jobs.
	jobs := f.qstore.JobsInLane(delivery.LaneNormal)
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		var payload delivery.DeliveryJob
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.NotEqual(t, "sub_sc1", payload.SubscriptionID)
		assert.Equal(t, res.SignalID, payload.SignalID)
	}
}

func TestListSignals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedChannel(t, storage.ChannelActive)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.service.PublishSignal(ctx, "ch_1", publisherCtx(), ingest.PublishInput{
			Title: fmt.Sprintf("title %d", i), Body: "b",
		})
		require.NoError(t, err)
	}

	signals, err := f.service.ListSignals(ctx, "ch_1", publisherCtx(), 2, "")
	require.NoError(t, err)
	assert.Len(t, signals, 2)

	all, err := f.service.ListSignals(ctx, "ch_1", publisherCtx(), 0, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.service.ListSignals(ctx, "ch_1", ingest.AuthContext{OwnerType: storage.OwnerSubscriber, OwnerID: "x"}, 10, "")
	require.ErrorIs(t, err, ingest.ErrPublisherRequired)

	_, err = f.service.ListSignals(ctx, "ch_1", ingest.AuthContext{OwnerType: storage.OwnerPublisher, OwnerID: "pub_other"}, 10, "")
	require.ErrorIs(t, err, ingest.ErrNotChannelOwner)
}
