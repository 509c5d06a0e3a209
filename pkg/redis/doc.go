// Package redis provides connectivity to the Redis instance backing
// Herald's ephemeral KV plane. The tunnel uses it for agent presence keys
// (see the tunnel package); rate limiting and caching by the API layer sit
// on the same client.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
package redis
