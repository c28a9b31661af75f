package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker serializa las cascadas de sustitución por documento fiscal
// usando advisory locks de PostgreSQL a nivel sesión. El lock vive en una
// conexión dedicada del pool; la función release la regresa al soltar.
type AdvisoryLocker struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewAdvisoryLocker construye el locker. timeout acota la espera por el lock;
// <= 0 usa 10s.
func NewAdvisoryLocker(pool *pgxpool.Pool, timeout time.Duration) *AdvisoryLocker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AdvisoryLocker{pool: pool, timeout: timeout}
}

// Lock adquiere el advisory lock para la llave dada y devuelve la función que
// lo libera. Bloquea hasta adquirirlo o hasta agotar el timeout.
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (release func(), err error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("adquirir conexión para lock: %w", err)
	}

	lockID := advisoryKey(key)
	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := conn.Exec(lockCtx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock %q: %w", key, err)
	}

	release = func() {
		// Best effort: si la desconexión se lleva la sesión, el lock muere con ella.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
		conn.Release()
	}
	return release, nil
}

// advisoryKey proyecta la llave textual al espacio int64 de pg_advisory_lock.
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
