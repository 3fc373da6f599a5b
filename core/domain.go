package core

import "context"

// DomainService runs each operation in its own transaction: begin, one
// atomic call, commit. Any failure aborts and surfaces the original error.
type DomainService[C any, E Entry, U any] struct {
	name   string
	runner Runner
	atomic *AtomicService[C, E, U]
}

func NewDomainService[C any, E Entry, U any](
	name string,
	runner Runner,
	atomic *AtomicService[C, E, U],
) *DomainService[C, E, U] {
	if runner.Observer == nil {
		runner.Observer = NopObserver()
	}
	return &DomainService[C, E, U]{name: normalizeOperation(name), runner: runner, atomic: atomic}
}

func (s *DomainService[C, E, U]) Create(ctx context.Context, input C) (E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("create"), s.fields(""), func(ctx context.Context, txn Transaction) (E, error) {
		return s.atomic.Create(ctx, txn, input)
	})
}

func (s *DomainService[C, E, U]) ReadByID(ctx context.Context, id string) (E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("read"), s.fields(id), func(ctx context.Context, txn Transaction) (E, error) {
		return s.atomic.ReadByID(ctx, txn, id)
	})
}

func (s *DomainService[C, E, U]) ReadAll(ctx context.Context) ([]E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("list"), s.fields(""), func(ctx context.Context, txn Transaction) ([]E, error) {
		return s.atomic.ReadAll(ctx, txn)
	})
}

func (s *DomainService[C, E, U]) Update(ctx context.Context, id string, input U) error {
	_, err := RunInTransaction(ctx, s.runner, s.operation("update"), s.fields(id), func(ctx context.Context, txn Transaction) (struct{}, error) {
		return struct{}{}, s.atomic.Update(ctx, txn, id, input)
	})
	return err
}

func (s *DomainService[C, E, U]) Delete(ctx context.Context, id string) error {
	_, err := RunInTransaction(ctx, s.runner, s.operation("delete"), s.fields(id), func(ctx context.Context, txn Transaction) (struct{}, error) {
		return struct{}{}, s.atomic.Delete(ctx, txn, id)
	})
	return err
}

func (s *DomainService[C, E, U]) operation(verb string) string {
	if s == nil || s.name == "" {
		return verb
	}
	return s.name + "." + verb
}

func (s *DomainService[C, E, U]) fields(id string) map[string]any {
	fields := map[string]any{}
	if s != nil && s.name != "" {
		fields["collection"] = s.name
	}
	if id != "" {
		fields["id"] = id
	}
	return fields
}

// OwnedDomainService is DomainService for owner-scoped entries.
type OwnedDomainService[C any, E OwnedEntry, U any] struct {
	name   string
	runner Runner
	atomic *OwnedAtomicService[C, E, U]
}

func NewOwnedDomainService[C any, E OwnedEntry, U any](
	name string,
	runner Runner,
	atomic *OwnedAtomicService[C, E, U],
) *OwnedDomainService[C, E, U] {
	if runner.Observer == nil {
		runner.Observer = NopObserver()
	}
	return &OwnedDomainService[C, E, U]{name: normalizeOperation(name), runner: runner, atomic: atomic}
}

func (s *OwnedDomainService[C, E, U]) Create(ctx context.Context, ownerID string, input C) (E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("create"), s.fields(ownerID, ""), func(ctx context.Context, txn Transaction) (E, error) {
		return s.atomic.Create(ctx, txn, ownerID, input)
	})
}

func (s *OwnedDomainService[C, E, U]) ReadByID(ctx context.Context, ownerID, id string) (E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("read"), s.fields(ownerID, id), func(ctx context.Context, txn Transaction) (E, error) {
		return s.atomic.ReadByID(ctx, txn, ownerID, id)
	})
}

func (s *OwnedDomainService[C, E, U]) ReadAll(ctx context.Context, ownerID string) ([]E, error) {
	return RunInTransaction(ctx, s.runner, s.operation("list"), s.fields(ownerID, ""), func(ctx context.Context, txn Transaction) ([]E, error) {
		return s.atomic.ReadAll(ctx, txn, ownerID)
	})
}

func (s *OwnedDomainService[C, E, U]) Update(ctx context.Context, ownerID, id string, input U) error {
	_, err := RunInTransaction(ctx, s.runner, s.operation("update"), s.fields(ownerID, id), func(ctx context.Context, txn Transaction) (struct{}, error) {
		return struct{}{}, s.atomic.Update(ctx, txn, ownerID, id, input)
	})
	return err
}

func (s *OwnedDomainService[C, E, U]) Delete(ctx context.Context, ownerID, id string) error {
	_, err := RunInTransaction(ctx, s.runner, s.operation("delete"), s.fields(ownerID, id), func(ctx context.Context, txn Transaction) (struct{}, error) {
		return struct{}{}, s.atomic.Delete(ctx, txn, ownerID, id)
	})
	return err
}

func (s *OwnedDomainService[C, E, U]) operation(verb string) string {
	if s == nil || s.name == "" {
		return verb
	}
	return s.name + "." + verb
}

func (s *OwnedDomainService[C, E, U]) fields(ownerID, id string) map[string]any {
	fields := map[string]any{}
	if s != nil && s.name != "" {
		fields["collection"] = s.name
	}
	if ownerID != "" {
		fields["owner_id"] = ownerID
	}
	if id != "" {
		fields["id"] = id
	}
	return fields
}
