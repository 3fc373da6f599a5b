package core

import "context"

// AtomicService performs exactly one provider call per method inside a
// transaction owned by the caller. It never begins, commits or aborts.
type AtomicService[C any, E Entry, U any] struct {
	provider  Provider[E]
	transform Transformer[C, E, U]
}

func NewAtomicService[C any, E Entry, U any](provider Provider[E], transform Transformer[C, E, U]) *AtomicService[C, E, U] {
	return &AtomicService[C, E, U]{provider: provider, transform: transform}
}

func (s *AtomicService[C, E, U]) Create(ctx context.Context, txn Transaction, input C) (E, error) {
	var zero E
	if err := s.ready(txn); err != nil {
		return zero, err
	}
	entry, err := s.transform.FromCreate(input)
	if err != nil {
		return zero, err
	}
	if err := RequireID("id", entry.GetID()); err != nil {
		return zero, err
	}
	return s.provider.Create(ctx, txn, entry)
}

func (s *AtomicService[C, E, U]) ReadByID(ctx context.Context, txn Transaction, id string) (E, error) {
	var zero E
	if err := s.ready(txn); err != nil {
		return zero, err
	}
	if err := RequireID("id", id); err != nil {
		return zero, err
	}
	return s.provider.ReadByID(ctx, txn, id)
}

func (s *AtomicService[C, E, U]) ReadAll(ctx context.Context, txn Transaction) ([]E, error) {
	if err := s.ready(txn); err != nil {
		return nil, err
	}
	return s.provider.ReadAll(ctx, txn)
}

func (s *AtomicService[C, E, U]) Update(ctx context.Context, txn Transaction, id string, input U) error {
	if err := s.ready(txn); err != nil {
		return err
	}
	if err := RequireID("id", id); err != nil {
		return err
	}
	entry, err := s.transform.FromUpdate(id, input)
	if err != nil {
		return err
	}
	return s.provider.Update(ctx, txn, entry)
}

func (s *AtomicService[C, E, U]) Delete(ctx context.Context, txn Transaction, id string) error {
	if err := s.ready(txn); err != nil {
		return err
	}
	if err := RequireID("id", id); err != nil {
		return err
	}
	return s.provider.Delete(ctx, txn, id)
}

func (s *AtomicService[C, E, U]) ready(txn Transaction) error {
	if s == nil || s.provider == nil {
		return InternalError("core: atomic service provider is not configured")
	}
	if s.transform == nil {
		return InternalError("core: atomic service transform is not configured")
	}
	return RequireOpen(txn)
}

// OwnedAtomicService is AtomicService for owner-scoped entries.
type OwnedAtomicService[C any, E OwnedEntry, U any] struct {
	provider  OwnedProvider[E]
	transform OwnedTransformer[C, E, U]
}

func NewOwnedAtomicService[C any, E OwnedEntry, U any](
	provider OwnedProvider[E],
	transform OwnedTransformer[C, E, U],
) *OwnedAtomicService[C, E, U] {
	return &OwnedAtomicService[C, E, U]{provider: provider, transform: transform}
}

func (s *OwnedAtomicService[C, E, U]) Create(ctx context.Context, txn Transaction, ownerID string, input C) (E, error) {
	var zero E
	if err := s.ready(txn); err != nil {
		return zero, err
	}
	if err := RequireID("owner_id", ownerID); err != nil {
		return zero, err
	}
	entry, err := s.transform.FromCreate(ownerID, input)
	if err != nil {
		return zero, err
	}
	if err := RequireID("id", entry.GetID()); err != nil {
		return zero, err
	}
	return s.provider.Create(ctx, txn, entry)
}

func (s *OwnedAtomicService[C, E, U]) ReadByID(ctx context.Context, txn Transaction, ownerID, id string) (E, error) {
	var zero E
	if err := s.ready(txn); err != nil {
		return zero, err
	}
	if err := requireOwnedIDs(ownerID, id); err != nil {
		return zero, err
	}
	return s.provider.ReadByID(ctx, txn, ownerID, id)
}

func (s *OwnedAtomicService[C, E, U]) ReadAll(ctx context.Context, txn Transaction, ownerID string) ([]E, error) {
	if err := s.ready(txn); err != nil {
		return nil, err
	}
	if err := RequireID("owner_id", ownerID); err != nil {
		return nil, err
	}
	return s.provider.ReadAll(ctx, txn, ownerID)
}

func (s *OwnedAtomicService[C, E, U]) Update(ctx context.Context, txn Transaction, ownerID, id string, input U) error {
	if err := s.ready(txn); err != nil {
		return err
	}
	if err := requireOwnedIDs(ownerID, id); err != nil {
		return err
	}
	entry, err := s.transform.FromUpdate(ownerID, id, input)
	if err != nil {
		return err
	}
	return s.provider.Update(ctx, txn, entry)
}

func (s *OwnedAtomicService[C, E, U]) Delete(ctx context.Context, txn Transaction, ownerID, id string) error {
	if err := s.ready(txn); err != nil {
		return err
	}
	if err := requireOwnedIDs(ownerID, id); err != nil {
		return err
	}
	return s.provider.Delete(ctx, txn, ownerID, id)
}

func (s *OwnedAtomicService[C, E, U]) ready(txn Transaction) error {
	if s == nil || s.provider == nil {
		return InternalError("core: atomic service provider is not configured")
	}
	if s.transform == nil {
		return InternalError("core: atomic service transform is not configured")
	}
	return RequireOpen(txn)
}

func requireOwnedIDs(ownerID, id string) error {
	if err := RequireID("owner_id", ownerID); err != nil {
		return err
	}
	return RequireID("id", id)
}
