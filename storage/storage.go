package storage

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage is the Postgres-backed persistence layer. Each consumer declares
// the narrow interface it needs; *Storage satisfies all of them.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a Storage on top of an established connection pool.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}
