package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-booking/internal/apperr"
	"service-booking/pkg/database"

	"go.uber.org/zap"
)

type pgTransactor struct {
	db         database.PgxIface
	log        *zap.Logger
	maxRetries int
	build      func(q database.Querier) *Repository
}

func (t *pgTransactor) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return retryTx(ctx, t.log, t.maxRetries, func() error {
		return t.run(ctx, fn)
	})
}

func (t *pgTransactor) run(ctx context.Context, fn func(tx *Repository) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
				t.log.Error("Failed to roll back transaction", zap.Error(rbErr))
			}
		}
	}()

	repo := t.build(tx)
	repo.tx = inTx{repo: repo}

	if err = fn(repo); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// retryTx reruns attempt while it fails with a retryable transaction error.
// Exhausted retries surface as apperr.ErrRetryable.
func retryTx(ctx context.Context, log *zap.Logger, maxRetries int, attempt func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for i := 0; i <= maxRetries; i++ {
		if err = attempt(); err == nil || !isRetryableTx(err) {
			return err
		}

		log.Warn("Transaction conflict, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}

	return fmt.Errorf("%w: %v", apperr.ErrRetryable, err)
}
