// Package tunnel implements the persistent agent tunnel: the wire protocol,
// the in-process agent registry, and the WebSocket session handler.
//
// An agent connects, sends an auth frame carrying a subscriber API key, and
// on success receives pushed signal frames until it disconnects. Frames are
// JSON with a snake_case "type" tag:
//
//	C->S  {"type":"auth","token":"hld_sub_..."}
//	C->S  {"type":"ack","delivery_id":"del_..."}
//	C->S  {"type":"pong"}
//	S->C  {"type":"auth_ok","connection_id":"conn_...","subscriber_id":"sub_..."}
//	S->C  {"type":"auth_error","message":"..."}
//	S->C  {"type":"signal","delivery_id":"del_...","channel_id":"ch_...", ...}
//	S->C  {"type":"ping"}
//
// Each session runs three cooperating goroutines: a read loop consuming
// client frames, a write loop draining the connection's bounded outbound
// channel, and a ping ticker. They share nothing but the outbound channel
// and the registry entry.
//
// The Registry maps subscriber ids to live connections with last-writer-wins
// registration: a reconnecting agent displaces its previous session, whose
// teardown is then a no-op against the registry. Delivery workers push with
// AgentConnection.TrySend, which never blocks; a full buffer is a delivery
// failure, not a stalled worker.
//
// PresenceStore mirrors connectivity into Redis TTL keys for the admin
// plane. The in-process registry stays authoritative for routing.
package tunnel
