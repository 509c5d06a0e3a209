// Package storage holds Herald's domain models and their Postgres-backed
// persistence.
//
// Storage wraps a pgx connection pool and exposes one method group per
// entity: signals, channels, subscriptions, webhooks, accounts, deliveries,
// API keys and the dead-letter queue. Consumers declare the narrow
// interface they depend on and take *Storage (or *Memory in tests):
//
//	type signalStore interface {
//		GetSignal(ctx context.Context, id string) (*storage.Signal, error)
//		IncrementSignalCounts(ctx context.Context, id string, delivered, failed, total int) error
//	}
//
// Counter updates use relative deltas in single UPDATE statements, so
// concurrent workers never lose increments. Signal creation bumps the
// owning channel's signal_count inside the same transaction.
//
// QueueStorage implements pkg/queue's repository interfaces on the same
// database; job claims use FOR UPDATE SKIP LOCKED.
//
// Schema migrations live under migrations/ and are applied with goose via
// pg.Migrate.
package storage
