package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/workforcehq/workforce-sdk/pkg/composables"
)

// PgUnitOfWork runs import passes in a single pgx transaction with a hard
// deadline. A dry run executes the pass normally and rolls the transaction
// back at the end, so the database never sees the writes.
type PgUnitOfWork struct {
	timeout time.Duration
}

func NewPgUnitOfWork(timeout time.Duration) *PgUnitOfWork {
	return &PgUnitOfWork{timeout: timeout}
}

func (u *PgUnitOfWork) Run(ctx context.Context, dryRun bool, fn func(context.Context) error) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	pool, err := composables.UsePool(ctx)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(composables.WithTx(ctx, tx)); err != nil {
		return err
	}
	if dryRun {
		return errors.Wrap(tx.Rollback(ctx), "rollback dry run")
	}
	return errors.Wrap(tx.Commit(ctx), "commit transaction")
}
