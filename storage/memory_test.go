package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/storage"
)

func seedChannel(t *testing.T, store *storage.Memory, id string) {
	t.Helper()
	require.NoError(t, store.CreateChannel(context.Background(), &storage.Channel{
		ID:          id,
		PublisherID: "pub_test",
		Slug:        "test-channel",
		DisplayName: "Test Channel",
	}))
}

func TestMemorySignalCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()
	seedChannel(t, store, "ch_counters")

	sig := &storage.Signal{
		ID:        "sig_counters",
		ChannelID: "ch_counters",
		Title:     "t",
		Body:      "b",
		Urgency:   storage.UrgencyNormal,
	}
	require.NoError(t, store.CreateSignal(ctx, sig))

	// Concurrent workers apply relative deltas; the identity
	// delivery_count = delivered_count + failed_count must survive any
	// interleaving.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = store.IncrementSignalCounts(ctx, "sig_counters", 1, 0, 1)
			} else {
				_ = store.IncrementSignalCounts(ctx, "sig_counters", 0, 1, 1)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.GetSignal(ctx, "sig_counters")
	require.NoError(t, err)
	assert.Equal(t, 10, got.DeliveredCount)
	assert.Equal(t, 10, got.FailedCount)
	assert.Equal(t, got.DeliveredCount+got.FailedCount, got.DeliveryCount)
}

func TestMemoryCreateSignalBumpsChannelCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()
	seedChannel(t, store, "ch_bump")

	require.NoError(t, store.CreateSignal(ctx, &storage.Signal{
		ID: "sig_1", ChannelID: "ch_bump", Title: "a", Body: "b",
		Urgency: storage.UrgencyNormal,
	}))
	require.NoError(t, store.CreateSignal(ctx, &storage.Signal{
		ID: "sig_2", ChannelID: "ch_bump", Title: "c", Body: "d",
		Urgency: storage.UrgencyNormal,
	}))

	ch, err := store.GetChannel(ctx, "ch_bump")
	require.NoError(t, err)
	assert.Equal(t, 2, ch.SignalCount)

	err = store.CreateSignal(ctx, &storage.Signal{
		ID: "sig_3", ChannelID: "ch_missing", Title: "x", Body: "y",
		Urgency: storage.UrgencyNormal,
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDuplicateSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, store.CreateSubscription(ctx, &storage.Subscription{
		ID: "sub_n1", SubscriberID: "sub_A", ChannelID: "ch_X",
	}))

	err := store.CreateSubscription(ctx, &storage.Subscription{
		ID: "sub_n2", SubscriberID: "sub_A", ChannelID: "ch_X",
	})
	require.ErrorIs(t, err, storage.ErrDuplicateSubscription)

	// A canceled subscription frees the slot.
	require.NoError(t, store.UpdateSubscriptionStatus(ctx, "sub_n1", storage.SubscriptionCanceled))
	require.NoError(t, store.CreateSubscription(ctx, &storage.Subscription{
		ID: "sub_n3", SubscriberID: "sub_A", ChannelID: "ch_X",
	}))
}

func TestMemoryWebhookFailureReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, store.CreateWebhook(ctx, &storage.Webhook{
		ID: "wh_1", SubscriberID: "sub_A", URL: "https://example.com/hook", Name: "main",
	}))

	now := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.UpdateWebhookFailure(ctx, "wh_1", now))
	}

	wh, err := store.GetWebhook(ctx, "wh_1")
	require.NoError(t, err)
	assert.Equal(t, 4, wh.FailureCount)
	require.NotNil(t, wh.LastFailureAt)

	require.NoError(t, store.UpdateWebhookSuccess(ctx, "wh_1", now))

	wh, err = store.GetWebhook(ctx, "wh_1")
	require.NoError(t, err)
	assert.Equal(t, 0, wh.FailureCount)
	require.NotNil(t, wh.LastSuccessAt)
}

func TestMemoryAPIKeyLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, store.CreateAPIKey(ctx, &storage.APIKey{
		ID: "key_1", KeyHash: "hash1", KeyPrefix: "hld_sub_abcd",
		OwnerType: storage.OwnerSubscriber, OwnerID: "sub_A",
	}))

	key, err := store.GetAPIKeyByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, "sub_A", key.OwnerID)

	_, err = store.GetAPIKeyByHash(ctx, "unknown")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.RevokeAPIKey(ctx, "key_1"))
	_, err = store.GetAPIKeyByHash(ctx, "hash1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, store.CreateAPIKey(ctx, &storage.APIKey{
		ID: "key_2", KeyHash: "hash2", KeyPrefix: "hld_sub_efgh",
		OwnerType: storage.OwnerSubscriber, OwnerID: "sub_B",
		ExpiresAt: &expired,
	}))
	_, err = store.GetAPIKeyByHash(ctx, "hash2")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDeadLetterResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemory()

	require.NoError(t, store.CreateDeadLetter(ctx, &storage.DeadLetterEntry{
		ID: "dlq_1", DeliveryID: "del_1", SignalID: "sig_1",
		SubscriptionID: "sub_n1",
		Payload:        []byte(`{}`),
		ErrorHistory:   []byte(`[]`),
	}))

	unresolved, err := store.ListUnresolvedDeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, store.ResolveDeadLetter(ctx, "dlq_1"))

	unresolved, err = store.ListUnresolvedDeadLetters(ctx)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	entry, err := store.GetDeadLetter(ctx, "dlq_1")
	require.NoError(t, err)
	assert.NotNil(t, entry.ResolvedAt)
}
