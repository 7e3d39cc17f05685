package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larpforge/storyai/internal/service"
)

// PgxTxRunner runs callbacks inside a single pgx transaction, handing them
// transaction-scoped repositories.
type PgxTxRunner struct {
	pool *pgxpool.Pool
}

func NewPgxTxRunner(pool *pgxpool.Pool) *PgxTxRunner {
	return &PgxTxRunner{pool: pool}
}

type txRepos struct {
	chunks *LoreChunkRepository
}

func (r *txRepos) LoreChunks() service.LoreChunkTxRepository {
	return r.chunks
}

// WithTx begins a transaction, invokes fn with repositories bound to it, and
// commits on success. Any error from fn rolls the transaction back.
func (r *PgxTxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txRepos{chunks: NewLoreChunkRepositoryWithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
