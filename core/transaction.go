package core

import (
	"context"
	"time"
)

// TxFunc is the body of a transaction-bounded operation.
type TxFunc[T any] func(ctx context.Context, txn Transaction) (T, error)

// Runner opens one transaction per call and observes its outcome.
type Runner struct {
	Coordinator TransactionCoordinator
	Observer    *Observer
}

func NewRunner(coordinator TransactionCoordinator, observer *Observer) Runner {
	if observer == nil {
		observer = NopObserver()
	}
	return Runner{Coordinator: coordinator, Observer: observer}
}

// InTransaction begins a transaction, runs fn and commits when fn succeeds.
// A failing fn aborts the transaction and its error is returned unchanged; an
// abort failure is logged and never replaces it. A context cancelled before
// commit aborts instead of committing.
func InTransaction[T any](ctx context.Context, coordinator TransactionCoordinator, fn TxFunc[T]) (T, error) {
	return RunInTransaction(ctx, NewRunner(coordinator, nil), "", nil, fn)
}

// RunInTransaction is InTransaction with an operation name used for logging
// and metrics. An empty operation skips observation.
func RunInTransaction[T any](
	ctx context.Context,
	runner Runner,
	operation string,
	fields map[string]any,
	fn TxFunc[T],
) (result T, err error) {
	startedAt := time.Now()
	if operation != "" {
		defer func() {
			runner.Observer.Observe(ctx, startedAt, operation, err, fields)
		}()
	}

	var zero T
	if runner.Coordinator == nil {
		return zero, InternalError("core: transaction coordinator is not configured")
	}
	if fn == nil {
		return zero, InternalError("core: transaction body is required")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	txn, err := runner.Coordinator.Begin(ctx)
	if err != nil {
		return zero, err
	}
	cleanupCtx := context.WithoutCancel(ctx)
	defer txn.Release(cleanupCtx)

	result, err = fn(ctx, txn)
	if err != nil {
		abortQuietly(cleanupCtx, runner.Observer, txn, operation, err)
		return zero, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		abortQuietly(cleanupCtx, runner.Observer, txn, operation, ctxErr)
		return zero, ctxErr
	}
	if err = txn.Commit(ctx); err != nil {
		return zero, err
	}
	return result, nil
}

func abortQuietly(ctx context.Context, observer *Observer, txn Transaction, operation string, cause error) {
	if txn.State() != TxOpen {
		return
	}
	if abortErr := txn.Abort(ctx); abortErr != nil {
		observer.Warn(ctx, "transaction abort failed", map[string]any{
			"operation":   operation,
			"abort_error": abortErr.Error(),
			"cause":       cause.Error(),
		})
	}
}

// RequireOpen guards atomic operations against resolved or missing handles.
func RequireOpen(txn Transaction) error {
	if txn == nil {
		return InternalError("core: transaction handle is required")
	}
	if txn.State() != TxOpen {
		return TransactionResolvedError()
	}
	return nil
}
