// Package uow runs a mutation inside a transaction and defers side effects
// until the transaction has committed.
package uow

import (
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/store"
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type callback struct {
	key string
	fn  func(ctx context.Context) error
}

// Unit collects post-commit callbacks for one request. It is not safe for
// concurrent use.
type Unit struct {
	seen  map[string]bool
	queue []callback
}

func New() *Unit {
	return &Unit{seen: map[string]bool{}}
}

// AfterCommit schedules fn to run once the transaction commits. Callbacks
// sharing a non-empty key run once; the first scheduled wins.
func (u *Unit) AfterCommit(key string, fn func(ctx context.Context) error) {
	if key != "" {
		if u.seen[key] {
			return
		}
		u.seen[key] = true
	}
	u.queue = append(u.queue, callback{key: key, fn: fn})
}

func (u *Unit) Pending() int {
	return len(u.queue)
}

// Flush runs the queued callbacks in order. Every callback runs; failures
// are collected into one error. Callbacks scheduled while flushing also run.
func (u *Unit) Flush(ctx context.Context) error {
	var result *multierror.Error
	for i := 0; i < len(u.queue); i++ {
		cb := u.queue[i]
		if err := cb.fn(ctx); err != nil {
			if cb.key != "" {
				err = fmt.Errorf("%s: %w", cb.key, err)
			}
			result = multierror.Append(result, err)
		}
	}
	u.queue = nil
	return result.ErrorOrNil()
}

// Discard drops the queue; used when the transaction rolled back.
func (u *Unit) Discard() {
	u.queue = nil
	u.seen = map[string]bool{}
}

// Do runs fn in a transaction. On error or panic the transaction rolls back
// and no callback runs. After commit the callbacks are flushed; their
// failures are logged because the data change already stands.
func Do(ctx context.Context, st store.Store, fn func(tx store.Tx, u *Unit) error) (err error) {
	tx, err := st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	u := New()

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			u.Discard()
			panic(p)
		}
	}()

	if err := fn(tx, u); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error("tx_rollback_failed", map[string]any{"error": rbErr.Error()})
		}
		u.Discard()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		u.Discard()
		return fmt.Errorf("commit: %w", err)
	}

	if err := u.Flush(context.WithoutCancel(ctx)); err != nil {
		logger.Error("post_commit_failed", map[string]any{"error": err.Error()})
	}
	return nil
}
