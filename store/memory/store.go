package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-resources/core"
)

// Schema inspects a document before it is staged. A non-nil error rejects
// the write as a validation failure.
type Schema func(doc any) error

// docKey identifies a document. Plain collections leave owner empty; owner
// and id are compared as separate fields so no id can reach into another
// owner's scope.
type docKey struct {
	owner string
	id    string
}

type document struct {
	value any
	seq   uint64
}

type collection struct {
	docs   map[docKey]document
	schema Schema
}

// Store is an in-process document store. Writes are staged per session and
// applied atomically on commit.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	seq         uint64
	logger      core.Logger
}

type Option func(*Store)

func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithSchema registers a validator for a collection.
func WithSchema(name string, schema Schema) Option {
	return func(s *Store) {
		s.collection(name).schema = schema
	}
}

func New(opts ...Option) *Store {
	store := &Store{collections: map[string]*collection{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	store.logger = glog.Ensure(store.logger)
	return store
}

func (s *Store) Begin(ctx context.Context) (core.Transaction, error) {
	if s == nil {
		return nil, core.InternalError("memstore: store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Session{store: s, state: core.TxOpen, staged: map[string]map[docKey]*stagedWrite{}}, nil
}

// collection must be called with mu held or during construction.
func (s *Store) collection(name string) *collection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{docs: map[docKey]document{}}
		s.collections[name] = coll
	}
	return coll
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) lookup(name string, key docKey) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collection(name).docs[key]
	return doc, ok
}

func (s *Store) validate(name string, value any) error {
	s.mu.Lock()
	schema := s.collection(name).schema
	s.mu.Unlock()
	if schema == nil {
		return nil
	}
	if err := schema(value); err != nil {
		return core.WrapError(err, core.KindValidation, fmt.Sprintf("memstore: %s document rejected", name))
	}
	return nil
}

// snapshot returns the committed documents of one owner in a collection.
func (s *Store) snapshot(name, owner string) map[docKey]document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[docKey]document{}
	for key, doc := range s.collection(name).docs {
		if key.owner == owner {
			out[key] = doc
		}
	}
	return out
}

type stagedWrite struct {
	value      any
	seq        uint64
	deleted    bool
	baseExists bool
}

// Session is the memstore transaction handle.
type Session struct {
	store  *Store
	state  core.TxState
	staged map[string]map[docKey]*stagedWrite
}

func (t *Session) State() core.TxState {
	if t == nil {
		return core.TxAborted
	}
	return t.state
}

func (t *Session) Commit(ctx context.Context) error {
	if t == nil || t.state != core.TxOpen {
		return core.TransactionResolvedError()
	}
	if err := ctx.Err(); err != nil {
		t.discard()
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, writes := range t.staged {
		coll := s.collection(name)
		for key, write := range writes {
			_, exists := coll.docs[key]
			switch {
			case !write.deleted && !write.baseExists && exists:
				t.discard()
				return core.ConflictError(fmt.Sprintf("memstore: %s %q already exists", name, key.id))
			case write.baseExists && !exists:
				t.discard()
				return core.NotFoundError(fmt.Sprintf("memstore: %s %q no longer exists", name, key.id))
			}
		}
	}

	applied := 0
	for name, writes := range t.staged {
		coll := s.collection(name)
		for key, write := range writes {
			if write.deleted {
				delete(coll.docs, key)
			} else {
				coll.docs[key] = document{value: write.value, seq: write.seq}
			}
			applied++
		}
	}
	t.staged = nil
	t.state = core.TxCommitted
	s.logger.Debug("memstore session committed", "writes", applied)
	return nil
}

func (t *Session) Abort(context.Context) error {
	if t == nil || t.state != core.TxOpen {
		return core.TransactionResolvedError()
	}
	t.discard()
	return nil
}

func (t *Session) Release(context.Context) {
	if t == nil || t.state != core.TxOpen {
		return
	}
	t.discard()
}

func (t *Session) discard() {
	t.staged = nil
	t.state = core.TxAborted
}

func (t *Session) writes(name string) map[docKey]*stagedWrite {
	writes, ok := t.staged[name]
	if !ok {
		writes = map[docKey]*stagedWrite{}
		t.staged[name] = writes
	}
	return writes
}

// get resolves a key through staged writes first, then committed state.
func (t *Session) get(name string, key docKey) (any, bool) {
	if write, ok := t.staged[name][key]; ok {
		if write.deleted {
			return nil, false
		}
		return write.value, true
	}
	doc, ok := t.store.lookup(name, key)
	if !ok {
		return nil, false
	}
	return doc.value, true
}

func (t *Session) create(name string, key docKey, value any) error {
	if _, exists := t.get(name, key); exists {
		return core.ConflictError(fmt.Sprintf("memstore: %s already exists", name))
	}
	if err := t.store.validate(name, value); err != nil {
		return err
	}
	writes := t.writes(name)
	baseExists := false
	if previous, ok := writes[key]; ok && previous.deleted {
		baseExists = previous.baseExists
	}
	t.store.mu.Lock()
	seq := t.store.nextSeq()
	t.store.mu.Unlock()
	writes[key] = &stagedWrite{value: value, seq: seq, baseExists: baseExists}
	return nil
}

func (t *Session) update(name string, key docKey, value any) error {
	if _, exists := t.get(name, key); !exists {
		return core.NotFoundError(fmt.Sprintf("memstore: %s not found", name))
	}
	if err := t.store.validate(name, value); err != nil {
		return err
	}
	writes := t.writes(name)
	if write, ok := writes[key]; ok {
		write.value = value
		return nil
	}
	doc, _ := t.store.lookup(name, key)
	writes[key] = &stagedWrite{value: value, seq: doc.seq, baseExists: true}
	return nil
}

func (t *Session) remove(name string, key docKey) error {
	if _, exists := t.get(name, key); !exists {
		return core.NotFoundError(fmt.Sprintf("memstore: %s not found", name))
	}
	writes := t.writes(name)
	if write, ok := writes[key]; ok {
		if !write.baseExists {
			delete(writes, key)
			return nil
		}
		write.deleted = true
		write.value = nil
		return nil
	}
	writes[key] = &stagedWrite{deleted: true, baseExists: true}
	return nil
}

// list merges the committed and staged documents of one owner, in insertion
// order.
func (t *Session) list(name, owner string) []any {
	merged := t.store.snapshot(name, owner)
	for key, write := range t.staged[name] {
		if key.owner != owner {
			continue
		}
		if write.deleted {
			delete(merged, key)
			continue
		}
		merged[key] = document{value: write.value, seq: write.seq}
	}
	docs := make([]document, 0, len(merged))
	for _, doc := range merged {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].seq < docs[j].seq })
	values := make([]any, 0, len(docs))
	for _, doc := range docs {
		values = append(values, doc.value)
	}
	return values
}

func sessionFor(store *Store, txn core.Transaction) (*Session, error) {
	session, ok := txn.(*Session)
	if !ok || session == nil {
		return nil, core.InternalError("memstore: transaction does not belong to a memstore")
	}
	if session.store != store {
		return nil, core.InternalError("memstore: transaction belongs to another store")
	}
	if session.state != core.TxOpen {
		return nil, core.TransactionResolvedError()
	}
	return session, nil
}

var _ core.TransactionCoordinator = (*Store)(nil)
var _ core.Transaction = (*Session)(nil)
