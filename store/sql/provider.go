package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-resources/core"
	"github.com/uptrace/bun"
)

// Mapper converts between a domain entry and its bun record.
type Mapper[E any, R any] struct {
	ToRecord func(E) *R
	ToEntry  func(*R) E
}

type matcher struct {
	column string
	value  string
}

// table holds the statements shared by the plain and owner-scoped
// providers. Identity columns always compare case-insensitively.
type table[E any, R any] struct {
	subject string
	repo    repository.Repository[*R]
	mapper  Mapper[E, R]
}

func newTable[E any, R any](db *bun.DB, subject string, mapper Mapper[E, R], handlers repository.ModelHandlers[*R]) table[E, R] {
	return table[E, R]{
		subject: subject,
		repo:    repository.NewRepository[*R](db, handlers),
		mapper:  mapper,
	}
}

func (t table[E, R]) configured() error {
	if t.repo == nil || t.mapper.ToRecord == nil || t.mapper.ToEntry == nil {
		return core.InternalError(fmt.Sprintf("sqlstore: %s provider is not configured", t.subject))
	}
	return nil
}

func (t table[E, R]) create(ctx context.Context, txn core.Transaction, entry E) (E, error) {
	var zero E
	tx, err := t.begin(ctx, txn)
	if err != nil {
		return zero, err
	}
	inserted, err := t.repo.CreateTx(ctx, tx, t.mapper.ToRecord(entry))
	if err != nil {
		return zero, classifyError(err, t.subject)
	}
	return t.mapper.ToEntry(inserted), nil
}

func (t table[E, R]) readOne(ctx context.Context, txn core.Transaction, matchers ...matcher) (E, error) {
	var zero E
	tx, err := t.begin(ctx, txn)
	if err != nil {
		return zero, err
	}
	var records []R
	query := tx.NewSelect().Model(&records)
	query = applyMatchers(query, matchers)
	if err := query.Limit(1).Scan(ctx); err != nil {
		return zero, classifyError(err, t.subject)
	}
	if len(records) == 0 {
		return zero, core.NotFoundError(fmt.Sprintf("sqlstore: %s not found", t.subject))
	}
	return t.mapper.ToEntry(&records[0]), nil
}

func (t table[E, R]) readMany(ctx context.Context, txn core.Transaction, matchers ...matcher) ([]E, error) {
	tx, err := t.begin(ctx, txn)
	if err != nil {
		return nil, err
	}
	var records []R
	query := tx.NewSelect().Model(&records)
	query = applyMatchers(query, matchers)
	if err := query.Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, classifyError(err, t.subject)
	}
	entries := make([]E, 0, len(records))
	for index := range records {
		entries = append(entries, t.mapper.ToEntry(&records[index]))
	}
	return entries, nil
}

func (t table[E, R]) update(ctx context.Context, txn core.Transaction, entry E, matchers ...matcher) error {
	tx, err := t.begin(ctx, txn)
	if err != nil {
		return err
	}
	excluded := []string{"created_at"}
	for _, m := range matchers {
		excluded = append(excluded, m.column)
	}
	query := tx.NewUpdate().
		Model(t.mapper.ToRecord(entry)).
		ExcludeColumn(excluded...)
	for _, m := range matchers {
		query = query.Where("lower(?) = lower(?)", bun.Ident(m.column), m.value)
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return classifyError(err, t.subject)
	}
	return t.requireAffected(result)
}

func (t table[E, R]) delete(ctx context.Context, txn core.Transaction, matchers ...matcher) error {
	tx, err := t.begin(ctx, txn)
	if err != nil {
		return err
	}
	query := tx.NewDelete().Model((*R)(nil))
	for _, m := range matchers {
		query = query.Where("lower(?) = lower(?)", bun.Ident(m.column), m.value)
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return classifyError(err, t.subject)
	}
	return t.requireAffected(result)
}

func (t table[E, R]) begin(ctx context.Context, txn core.Transaction) (bun.Tx, error) {
	if err := t.configured(); err != nil {
		return bun.Tx{}, err
	}
	if err := ctx.Err(); err != nil {
		return bun.Tx{}, err
	}
	return openTx(txn)
}

func (t table[E, R]) requireAffected(result interface{ RowsAffected() (int64, error) }) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return classifyError(err, t.subject)
	}
	if affected == 0 {
		return core.NotFoundError(fmt.Sprintf("sqlstore: %s not found", t.subject))
	}
	return nil
}

func applyMatchers(query *bun.SelectQuery, matchers []matcher) *bun.SelectQuery {
	for _, m := range matchers {
		query = query.Where("lower(?) = lower(?)", bun.Ident(m.column), m.value)
	}
	return query
}

func byID(id string) matcher {
	return matcher{column: "id", value: strings.TrimSpace(id)}
}

func byOwner(ownerID string) matcher {
	return matcher{column: "owner_id", value: strings.TrimSpace(ownerID)}
}

// Provider implements core.Provider over a bun table.
type Provider[E core.Entry, R any] struct {
	table table[E, R]
}

func NewProvider[E core.Entry, R any](db *bun.DB, subject string, mapper Mapper[E, R], handlers repository.ModelHandlers[*R]) *Provider[E, R] {
	return &Provider[E, R]{table: newTable(db, subject, mapper, handlers)}
}

func (p *Provider[E, R]) Create(ctx context.Context, txn core.Transaction, entry E) (E, error) {
	if err := core.RequireID("id", entry.GetID()); err != nil {
		var zero E
		return zero, err
	}
	return p.table.create(ctx, txn, entry)
}

func (p *Provider[E, R]) ReadByID(ctx context.Context, txn core.Transaction, id string) (E, error) {
	if err := core.RequireID("id", id); err != nil {
		var zero E
		return zero, err
	}
	return p.table.readOne(ctx, txn, byID(id))
}

func (p *Provider[E, R]) ReadAll(ctx context.Context, txn core.Transaction) ([]E, error) {
	return p.table.readMany(ctx, txn)
}

func (p *Provider[E, R]) Update(ctx context.Context, txn core.Transaction, entry E) error {
	if err := core.RequireID("id", entry.GetID()); err != nil {
		return err
	}
	return p.table.update(ctx, txn, entry, byID(entry.GetID()))
}

func (p *Provider[E, R]) Delete(ctx context.Context, txn core.Transaction, id string) error {
	if err := core.RequireID("id", id); err != nil {
		return err
	}
	return p.table.delete(ctx, txn, byID(id))
}

// OwnedProvider implements core.OwnedProvider; every statement filters by
// owner_id as well as id.
type OwnedProvider[E core.OwnedEntry, R any] struct {
	table table[E, R]
}

func NewOwnedProvider[E core.OwnedEntry, R any](db *bun.DB, subject string, mapper Mapper[E, R], handlers repository.ModelHandlers[*R]) *OwnedProvider[E, R] {
	return &OwnedProvider[E, R]{table: newTable(db, subject, mapper, handlers)}
}

func (p *OwnedProvider[E, R]) Create(ctx context.Context, txn core.Transaction, entry E) (E, error) {
	if err := requireOwned(entry.GetOwnerID(), entry.GetID()); err != nil {
		var zero E
		return zero, err
	}
	return p.table.create(ctx, txn, entry)
}

func (p *OwnedProvider[E, R]) ReadByID(ctx context.Context, txn core.Transaction, ownerID, id string) (E, error) {
	if err := requireOwned(ownerID, id); err != nil {
		var zero E
		return zero, err
	}
	return p.table.readOne(ctx, txn, byOwner(ownerID), byID(id))
}

func (p *OwnedProvider[E, R]) ReadAll(ctx context.Context, txn core.Transaction, ownerID string) ([]E, error) {
	if err := core.RequireID("owner_id", ownerID); err != nil {
		return nil, err
	}
	return p.table.readMany(ctx, txn, byOwner(ownerID))
}

func (p *OwnedProvider[E, R]) Update(ctx context.Context, txn core.Transaction, entry E) error {
	if err := requireOwned(entry.GetOwnerID(), entry.GetID()); err != nil {
		return err
	}
	return p.table.update(ctx, txn, entry, byOwner(entry.GetOwnerID()), byID(entry.GetID()))
}

func (p *OwnedProvider[E, R]) Delete(ctx context.Context, txn core.Transaction, ownerID, id string) error {
	if err := requireOwned(ownerID, id); err != nil {
		return err
	}
	return p.table.delete(ctx, txn, byOwner(ownerID), byID(id))
}

func requireOwned(ownerID, id string) error {
	if err := core.RequireID("owner_id", ownerID); err != nil {
		return err
	}
	return core.RequireID("id", id)
}
