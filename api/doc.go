// Package api exposes the engine's own HTTP surfaces: the publish
// endpoint, a channel's signal history, the agent tunnel upgrade, the
// dead letter retry hook and the health probe.
//
// Authentication is API-key based: callers send "Authorization: Bearer
// hld_pub_..." (or hld_sub_ for agents on the tunnel route), the key is
// hashed and looked up, and the resolved owner becomes the request's
// auth context. The full management CRUD for channels, webhooks and
// accounts lives outside the engine.
package api
