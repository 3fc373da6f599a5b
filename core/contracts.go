package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// Entry is any stored document addressable by a collection-unique id.
type Entry interface {
	GetID() string
}

// OwnedEntry is an Entry whose identity is scoped to an owner.
type OwnedEntry interface {
	Entry
	GetOwnerID() string
}

type TxState string

const (
	TxOpen      TxState = "open"
	TxCommitted TxState = "committed"
	TxAborted   TxState = "aborted"
)

// Transaction is a handle to one unit of work. A handle is owned by the call
// that began it and resolves exactly once.
type Transaction interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
	// Release frees the underlying session, aborting first when the handle is
	// still open. It is safe to call after Commit or Abort.
	Release(ctx context.Context)
	State() TxState
}

type TransactionCoordinator interface {
	Begin(ctx context.Context) (Transaction, error)
}

type Provider[E Entry] interface {
	Create(ctx context.Context, txn Transaction, entry E) (E, error)
	ReadByID(ctx context.Context, txn Transaction, id string) (E, error)
	ReadAll(ctx context.Context, txn Transaction) ([]E, error)
	Update(ctx context.Context, txn Transaction, entry E) error
	Delete(ctx context.Context, txn Transaction, id string) error
}

// OwnedProvider filters every read and delete by owner as well as id.
type OwnedProvider[E OwnedEntry] interface {
	Create(ctx context.Context, txn Transaction, entry E) (E, error)
	ReadByID(ctx context.Context, txn Transaction, ownerID, id string) (E, error)
	ReadAll(ctx context.Context, txn Transaction, ownerID string) ([]E, error)
	Update(ctx context.Context, txn Transaction, entry E) error
	Delete(ctx context.Context, txn Transaction, ownerID, id string) error
}

type Transformer[C any, E Entry, U any] interface {
	FromCreate(input C) (E, error)
	FromUpdate(id string, input U) (E, error)
}

type OwnedTransformer[C any, E OwnedEntry, U any] interface {
	FromCreate(ownerID string, input C) (E, error)
	FromUpdate(ownerID, id string, input U) (E, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
