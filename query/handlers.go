package query

import (
	"context"

	"github.com/goliatone/go-resources/core"
)

// Reader is the read side of core.DomainService.
type Reader[E any] interface {
	ReadByID(ctx context.Context, id string) (E, error)
	ReadAll(ctx context.Context) ([]E, error)
}

// OwnedReader is the list side of core.OwnedDomainService.
type OwnedReader[E any] interface {
	ReadAll(ctx context.Context, ownerID string) ([]E, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (core.ClaimSet, error)
}

// ReadQuery authorizes the read link before loading the resource.
type ReadQuery[E any] struct {
	reader Reader[E]
	policy core.LinkPolicy
}

func NewReadQuery[E any](reader Reader[E], policy core.LinkPolicy) *ReadQuery[E] {
	return &ReadQuery[E]{reader: reader, policy: policy}
}

func (q *ReadQuery[E]) Query(ctx context.Context, msg ReadResourceMessage) (E, error) {
	var zero E
	if q == nil || q.reader == nil {
		return zero, queryDependencyError("query: resource reader is required")
	}
	if err := q.policy.Authorize(core.OperationRead, msg.Claims); err != nil {
		return zero, err
	}
	return q.reader.ReadByID(ctx, msg.ID)
}

type ListQuery[E any] struct {
	reader Reader[E]
	policy core.LinkPolicy
}

func NewListQuery[E any](reader Reader[E], policy core.LinkPolicy) *ListQuery[E] {
	return &ListQuery[E]{reader: reader, policy: policy}
}

func (q *ListQuery[E]) Query(ctx context.Context, msg ListResourcesMessage) ([]E, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: resource reader is required")
	}
	if err := q.policy.Authorize(core.OperationList, msg.Claims); err != nil {
		return nil, err
	}
	return q.reader.ReadAll(ctx)
}

// ListOwnedQuery resolves the link policy per owner, so a caller can only
// list the collection whose subject claim they hold.
type ListOwnedQuery[E any] struct {
	reader OwnedReader[E]
	policy func(ownerID string) core.LinkPolicy
}

func NewListOwnedQuery[E any](reader OwnedReader[E], policy func(ownerID string) core.LinkPolicy) *ListOwnedQuery[E] {
	return &ListOwnedQuery[E]{reader: reader, policy: policy}
}

func (q *ListOwnedQuery[E]) Query(ctx context.Context, msg ListOwnedMessage) ([]E, error) {
	if q == nil || q.reader == nil || q.policy == nil {
		return nil, queryDependencyError("query: owned resource reader is required")
	}
	if err := q.policy(msg.OwnerID).Authorize(core.OperationList, msg.Claims); err != nil {
		return nil, err
	}
	return q.reader.ReadAll(ctx, msg.OwnerID)
}

type DiscoverLinksQuery struct {
	policy core.LinkPolicy
}

func NewDiscoverLinksQuery(policy core.LinkPolicy) *DiscoverLinksQuery {
	return &DiscoverLinksQuery{policy: policy}
}

func (q *DiscoverLinksQuery) Query(_ context.Context, msg DiscoverLinksMessage) ([]core.ClaimLink, error) {
	if q == nil {
		return nil, queryDependencyError("query: link policy is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.policy.Links(msg.Base, msg.Claims, msg.ID), nil
}

type AuthenticateQuery struct {
	authenticator Authenticator
}

func NewAuthenticateQuery(authenticator Authenticator) *AuthenticateQuery {
	return &AuthenticateQuery{authenticator: authenticator}
}

func (q *AuthenticateQuery) Query(ctx context.Context, msg AuthenticateMessage) (core.ClaimSet, error) {
	if q == nil || q.authenticator == nil {
		return core.ClaimSet{}, queryDependencyError("query: authenticator is required")
	}
	return q.authenticator.Authenticate(ctx, msg.AccessToken)
}
