// Package pg provides PostgreSQL connectivity for Herald on top of the
// pgx/v5 driver: connection pooling with startup retries, goose schema
// migrations, a health check, and error classification helpers.
//
// The helpers are deliberately decoupled:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil { ... }
//
// The same pool is shared by the ingest path, the delivery workers and the
// durable queue storage; per-query acquisitions are short so neither plane
// starves the other.
//
// Error helpers such as [IsDuplicateKeyError] let business logic classify
// failures (e.g. the unique active-subscription constraint) without
// depending on pgconn directly.
package pg
