package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-resources/core"
)

type cloner[E any] interface {
	Clone() E
}

// Provider stores entries of one collection keyed by lower-cased id.
type Provider[E core.Entry] struct {
	store      *Store
	collection string
}

func NewProvider[E core.Entry](store *Store, collection string) *Provider[E] {
	return &Provider[E]{store: store, collection: strings.TrimSpace(collection)}
}

func (p *Provider[E]) Create(ctx context.Context, txn core.Transaction, entry E) (E, error) {
	var zero E
	session, err := p.session(ctx, txn)
	if err != nil {
		return zero, err
	}
	if err := core.RequireID("id", entry.GetID()); err != nil {
		return zero, err
	}
	entry = cloneEntry(entry)
	if err := session.create(p.collection, entryKey(entry.GetID()), entry); err != nil {
		return zero, err
	}
	return cloneEntry(entry), nil
}

func (p *Provider[E]) ReadByID(ctx context.Context, txn core.Transaction, id string) (E, error) {
	var zero E
	session, err := p.session(ctx, txn)
	if err != nil {
		return zero, err
	}
	if err := core.RequireID("id", id); err != nil {
		return zero, err
	}
	value, ok := session.get(p.collection, entryKey(id))
	if !ok {
		return zero, core.NotFoundError(fmt.Sprintf("memstore: %s not found", p.collection))
	}
	return decode[E](p.collection, value)
}

func (p *Provider[E]) ReadAll(ctx context.Context, txn core.Transaction) ([]E, error) {
	session, err := p.session(ctx, txn)
	if err != nil {
		return nil, err
	}
	return decodeAll[E](p.collection, session.list(p.collection, ""))
}

func (p *Provider[E]) Update(ctx context.Context, txn core.Transaction, entry E) error {
	session, err := p.session(ctx, txn)
	if err != nil {
		return err
	}
	if err := core.RequireID("id", entry.GetID()); err != nil {
		return err
	}
	return session.update(p.collection, entryKey(entry.GetID()), cloneEntry(entry))
}

func (p *Provider[E]) Delete(ctx context.Context, txn core.Transaction, id string) error {
	session, err := p.session(ctx, txn)
	if err != nil {
		return err
	}
	if err := core.RequireID("id", id); err != nil {
		return err
	}
	return session.remove(p.collection, entryKey(id))
}

func (p *Provider[E]) session(ctx context.Context, txn core.Transaction) (*Session, error) {
	if p == nil || p.store == nil {
		return nil, core.InternalError("memstore: provider is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sessionFor(p.store, txn)
}

// OwnedProvider keys entries by owner and id as separate fields; every lookup
// matches both.
type OwnedProvider[E core.OwnedEntry] struct {
	store      *Store
	collection string
}

func NewOwnedProvider[E core.OwnedEntry](store *Store, collection string) *OwnedProvider[E] {
	return &OwnedProvider[E]{store: store, collection: strings.TrimSpace(collection)}
}

func (p *OwnedProvider[E]) Create(ctx context.Context, txn core.Transaction, entry E) (E, error) {
	var zero E
	session, err := p.session(ctx, txn)
	if err != nil {
		return zero, err
	}
	if err := requireOwned(entry.GetOwnerID(), entry.GetID()); err != nil {
		return zero, err
	}
	entry = cloneEntry(entry)
	if err := session.create(p.collection, ownedKey(entry.GetOwnerID(), entry.GetID()), entry); err != nil {
		return zero, err
	}
	return cloneEntry(entry), nil
}

func (p *OwnedProvider[E]) ReadByID(ctx context.Context, txn core.Transaction, ownerID, id string) (E, error) {
	var zero E
	session, err := p.session(ctx, txn)
	if err != nil {
		return zero, err
	}
	if err := requireOwned(ownerID, id); err != nil {
		return zero, err
	}
	value, ok := session.get(p.collection, ownedKey(ownerID, id))
	if !ok {
		return zero, core.NotFoundError(fmt.Sprintf("memstore: %s not found", p.collection))
	}
	entry, err := decode[E](p.collection, value)
	if err != nil {
		return zero, err
	}
	if !sameOwner(entry, ownerID) {
		return zero, core.NotFoundError(fmt.Sprintf("memstore: %s not found", p.collection))
	}
	return entry, nil
}

func (p *OwnedProvider[E]) ReadAll(ctx context.Context, txn core.Transaction, ownerID string) ([]E, error) {
	session, err := p.session(ctx, txn)
	if err != nil {
		return nil, err
	}
	if err := core.RequireID("owner_id", ownerID); err != nil {
		return nil, err
	}
	entries, err := decodeAll[E](p.collection, session.list(p.collection, normalize(ownerID)))
	if err != nil {
		return nil, err
	}
	owned := entries[:0]
	for _, entry := range entries {
		if sameOwner(entry, ownerID) {
			owned = append(owned, entry)
		}
	}
	return owned, nil
}

func (p *OwnedProvider[E]) Update(ctx context.Context, txn core.Transaction, entry E) error {
	session, err := p.session(ctx, txn)
	if err != nil {
		return err
	}
	if err := requireOwned(entry.GetOwnerID(), entry.GetID()); err != nil {
		return err
	}
	return session.update(p.collection, ownedKey(entry.GetOwnerID(), entry.GetID()), cloneEntry(entry))
}

func (p *OwnedProvider[E]) Delete(ctx context.Context, txn core.Transaction, ownerID, id string) error {
	session, err := p.session(ctx, txn)
	if err != nil {
		return err
	}
	if err := requireOwned(ownerID, id); err != nil {
		return err
	}
	return session.remove(p.collection, ownedKey(ownerID, id))
}

func (p *OwnedProvider[E]) session(ctx context.Context, txn core.Transaction) (*Session, error) {
	if p == nil || p.store == nil {
		return nil, core.InternalError("memstore: provider is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sessionFor(p.store, txn)
}

func requireOwned(ownerID, id string) error {
	if err := core.RequireID("owner_id", ownerID); err != nil {
		return err
	}
	return core.RequireID("id", id)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func entryKey(id string) docKey {
	return docKey{id: normalize(id)}
}

func ownedKey(ownerID, id string) docKey {
	return docKey{owner: normalize(ownerID), id: normalize(id)}
}

func sameOwner[E core.OwnedEntry](entry E, ownerID string) bool {
	return strings.EqualFold(strings.TrimSpace(entry.GetOwnerID()), strings.TrimSpace(ownerID))
}

func cloneEntry[E any](entry E) E {
	if c, ok := any(entry).(cloner[E]); ok {
		return c.Clone()
	}
	return entry
}

func decode[E any](collection string, value any) (E, error) {
	entry, ok := value.(E)
	if !ok {
		var zero E
		return zero, core.InternalError(fmt.Sprintf("memstore: %s holds %T", collection, value))
	}
	return cloneEntry(entry), nil
}

func decodeAll[E any](collection string, values []any) ([]E, error) {
	out := make([]E, 0, len(values))
	for _, value := range values {
		entry, err := decode[E](collection, value)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
