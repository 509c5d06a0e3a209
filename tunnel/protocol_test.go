package tunnel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/storage"
	"github.com/heraldhq/herald/tunnel"
)

func TestParseClientMessage(t *testing.T) {
	t.Parallel()

	t.Run("auth", func(t *testing.T) {
		t.Parallel()

		msg, err := tunnel.ParseClientMessage([]byte(`{"type":"auth","token":"hld_sub_abc"}`))
		require.NoError(t, err)
		assert.Equal(t, tunnel.TypeAuth, msg.Type)
		assert.Equal(t, "hld_sub_abc", msg.Token)
	})

	t.Run("ack", func(t *testing.T) {
		t.Parallel()

		msg, err := tunnel.ParseClientMessage([]byte(`{"type":"ack","delivery_id":"del_123"}`))
		require.NoError(t, err)
		assert.Equal(t, tunnel.TypeAck, msg.Type)
		assert.Equal(t, "del_123", msg.DeliveryID)
	})

	t.Run("pong", func(t *testing.T) {
		t.Parallel()

		msg, err := tunnel.ParseClientMessage([]byte(`{"type":"pong"}`))
		require.NoError(t, err)
		assert.Equal(t, tunnel.TypePong, msg.Type)
	})

	t.Run("unknown tag", func(t *testing.T) {
		t.Parallel()

		_, err := tunnel.ParseClientMessage([]byte(`{"type":"subscribe"}`))
		require.ErrorIs(t, err, tunnel.ErrInvalidMessage)
	})

	t.Run("missing tag", func(t *testing.T) {
		t.Parallel()

		_, err := tunnel.ParseClientMessage([]byte(`{"token":"x"}`))
		require.ErrorIs(t, err, tunnel.ErrInvalidMessage)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		_, err := tunnel.ParseClientMessage([]byte(`not json`))
		require.ErrorIs(t, err, tunnel.ErrInvalidMessage)
	})
}

func TestServerMessageWireFormat(t *testing.T) {
	t.Parallel()

	t.Run("auth_ok", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(tunnel.NewAuthOK("conn_abc", "sub_xyz"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"auth_ok","connection_id":"conn_abc","subscriber_id":"sub_xyz"}`, string(data))
	})

	t.Run("auth_error", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(tunnel.NewAuthError("invalid token"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"auth_error","message":"invalid token"}`, string(data))
	})

	t.Run("ping", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(tunnel.NewPing())
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"ping"}`, string(data))
	})

	t.Run("signal", func(t *testing.T) {
		t.Parallel()

		createdAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		ch := &storage.Channel{ID: "ch_1", Slug: "deploys", DisplayName: "Deploys"}
		sig := &storage.Signal{
			ID:        "sig_1",
			ChannelID: "ch_1",
			Title:     "rollout done",
			Body:      "v2 live",
			Urgency:   storage.UrgencyHigh,
			Metadata:  json.RawMessage(`{"region":"eu"}`),
			CreatedAt: createdAt,
		}

		data, err := json.Marshal(tunnel.NewSignal("del_1", ch, sig))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"type": "signal",
			"delivery_id": "del_1",
			"channel_id": "ch_1",
			"channel_slug": "deploys",
			"signal": {
				"id": "sig_1",
				"title": "rollout done",
				"body": "v2 live",
				"urgency": "high",
				"metadata": {"region":"eu"},
				"created_at": "2026-05-01T12:00:00Z"
			}
		}`, string(data))
	})
}
