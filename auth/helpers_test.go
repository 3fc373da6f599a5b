package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-resources/core"
	memstore "github.com/goliatone/go-resources/store/memory"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store       *memstore.Store
	accounts    *memstore.Provider[Account]
	invitations *memstore.Provider[Invitation]
	tokens      *memstore.OwnedProvider[TokenEntry]
	issuer      *JWTIssuer
	clock       *testClock
	config      core.AuthConfig
	workflow    *Workflow
}

func newFixture(t *testing.T, mutate ...func(*WorkflowDependencies)) *fixture {
	t.Helper()
	clock := newTestClock()
	config := core.DefaultConfig().Auth
	store := memstore.New(MemorySchemas()...)

	issuer, err := NewJWTIssuer("test-secret", config, WithJWTClock(clock.Now))
	if err != nil {
		t.Fatalf("new jwt issuer: %v", err)
	}
	f := &fixture{
		store:       store,
		accounts:    memstore.NewProvider[Account](store, CollectionAccounts),
		invitations: memstore.NewProvider[Invitation](store, CollectionInvitations),
		tokens:      memstore.NewOwnedProvider[TokenEntry](store, CollectionRefreshTokens),
		issuer:      issuer,
		clock:       clock,
		config:      config,
	}
	deps := WorkflowDependencies{
		Coordinator: store,
		Accounts:    f.accounts,
		Invitations: f.invitations,
		Tokens:      f.tokens,
		Hasher:      BcryptHasher{Cost: bcrypt.MinCost},
		Issuer:      issuer,
		Config:      config,
		Now:         clock.Now,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	workflow, err := NewWorkflow(deps)
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	f.workflow = workflow
	return f
}

func (f *fixture) invite(t *testing.T, code string, roles ...string) {
	t.Helper()
	f.write(t, func(ctx context.Context, txn core.Transaction) error {
		_, err := f.invitations.Create(ctx, txn, Invitation{ID: code, Roles: roles, CreatedAt: f.clock.Now()})
		return err
	})
}

func (f *fixture) write(t *testing.T, fn func(ctx context.Context, txn core.Transaction) error) {
	t.Helper()
	if err := f.run(fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func (f *fixture) run(fn func(ctx context.Context, txn core.Transaction) error) error {
	_, err := core.InTransaction(context.Background(), f.store, func(ctx context.Context, txn core.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, txn)
	})
	return err
}

func (f *fixture) readAccount(id string) (Account, error) {
	var found Account
	err := f.run(func(ctx context.Context, txn core.Transaction) error {
		var err error
		found, err = f.accounts.ReadByID(ctx, txn, id)
		return err
	})
	return found, err
}

func (f *fixture) readInvitation(code string) (Invitation, error) {
	var found Invitation
	err := f.run(func(ctx context.Context, txn core.Transaction) error {
		var err error
		found, err = f.invitations.ReadByID(ctx, txn, code)
		return err
	})
	return found, err
}

func (f *fixture) tokenCount(ownerID string) int {
	var count int
	_ = f.run(func(ctx context.Context, txn core.Transaction) error {
		entries, err := f.tokens.ReadAll(ctx, txn, ownerID)
		count = len(entries)
		return err
	})
	return count
}

func (f *fixture) signUp(t *testing.T, id, password string, roles ...string) TokenPair {
	t.Helper()
	code := "code-" + id
	f.invite(t, code, roles...)
	pair, err := f.workflow.SignUp(context.Background(), SignUpRequest{
		ID:             id,
		DisplayName:    "User " + id,
		InvitationCode: code,
		Password:       password,
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", id, err)
	}
	return pair
}

type failingIssuer struct {
	TokenIssuer
	err error
}

func (i failingIssuer) Issue(context.Context, TokenRequest) (TokenPair, error) {
	return TokenPair{}, i.err
}

var errIssuerDown = errors.New("issuer down")
