package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
	resourcemigrations "github.com/goliatone/go-resources/migrations"
	sqlstore "github.com/goliatone/go-resources/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-resources-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"resource_accounts", "resource_invitations", "resource_refresh_tokens"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestAccountProvider_CreateTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)

	mustWrite(t, factory, func(txn core.Transaction) error {
		_, err := factory.AccountProvider().Create(ctx, txn, account("u1", "reader"))
		return err
	})

	for _, id := range []string{"u1", "U1"} {
		err := runWrite(factory, func(txn core.Transaction) error {
			_, err := factory.AccountProvider().Create(ctx, txn, account(id, "reader"))
			return err
		})
		if !core.IsConflict(err) {
			t.Fatalf("expected conflict for %q, got %v", id, err)
		}
	}
}

func TestAccountProvider_SchemaRejectionIsValidation(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)

	cases := map[string]auth.Account{
		"no roles":       account("u-none"),
		"too many roles": account("u-many", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"),
		"blank name": func() auth.Account {
			entry := account("u-blank", "reader")
			entry.DisplayName = " "
			return entry
		}(),
	}
	for name, entry := range cases {
		err := runWrite(factory, func(txn core.Transaction) error {
			_, err := factory.AccountProvider().Create(ctx, txn, entry)
			return err
		})
		if !core.IsValidation(err) {
			t.Fatalf("%s: expected validation failure, got %v", name, err)
		}
	}
}

func TestAccountProvider_CaseInsensitiveReadUpdateDelete(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)
	accounts := factory.AccountProvider()

	mustWrite(t, factory, func(txn core.Transaction) error {
		_, err := accounts.Create(ctx, txn, account("Mixed", "reader", "writer"))
		return err
	})

	mustWrite(t, factory, func(txn core.Transaction) error {
		found, err := accounts.ReadByID(ctx, txn, "mixed")
		if err != nil {
			return err
		}
		if len(found.Roles) != 2 || found.Roles[0] != "reader" || found.Roles[1] != "writer" {
			return fmt.Errorf("unexpected roles %v", found.Roles)
		}
		found.ID = "MIXED"
		found.PasswordHash = "rotated"
		return accounts.Update(ctx, txn, found)
	})

	mustWrite(t, factory, func(txn core.Transaction) error {
		found, err := accounts.ReadByID(ctx, txn, "mIxEd")
		if err != nil {
			return err
		}
		if found.PasswordHash != "rotated" {
			return fmt.Errorf("expected updated digest, got %q", found.PasswordHash)
		}
		if found.ID != "Mixed" {
			return fmt.Errorf("expected stored id to keep its case, got %q", found.ID)
		}
		return accounts.Delete(ctx, txn, "MIXED")
	})

	err := runWrite(factory, func(txn core.Transaction) error {
		_, err := accounts.ReadByID(ctx, txn, "mixed")
		return err
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestAccountProvider_MissingTargetsAreNotFound(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)
	accounts := factory.AccountProvider()

	err := runWrite(factory, func(txn core.Transaction) error {
		return accounts.Update(ctx, txn, account("ghost", "reader"))
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected update not found, got %v", err)
	}
	err = runWrite(factory, func(txn core.Transaction) error {
		return accounts.Delete(ctx, txn, "ghost")
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected delete not found, got %v", err)
	}
	err = runWrite(factory, func(txn core.Transaction) error {
		_, err := accounts.ReadByID(ctx, txn, "  ")
		return err
	})
	if !core.IsBadRequest(err) {
		t.Fatalf("expected blank id bad request, got %v", err)
	}
}

func TestTokenProvider_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)
	tokens := factory.TokenProvider()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mustWrite(t, factory, func(txn core.Transaction) error {
		for _, entry := range []auth.TokenEntry{
			{ID: "t1", OwnerID: "alice", ExpiresAt: expires},
			{ID: "t2", OwnerID: "alice", ExpiresAt: expires},
			{ID: "t3", OwnerID: "bob", ExpiresAt: expires},
		} {
			if _, err := tokens.Create(ctx, txn, entry); err != nil {
				return err
			}
		}
		return nil
	})

	mustWrite(t, factory, func(txn core.Transaction) error {
		entries, err := tokens.ReadAll(ctx, txn, "ALICE")
		if err != nil {
			return err
		}
		if len(entries) != 2 {
			return fmt.Errorf("expected 2 alice tokens, got %d", len(entries))
		}
		empty, err := tokens.ReadAll(ctx, txn, "carol")
		if err != nil {
			return err
		}
		if empty == nil || len(empty) != 0 {
			return fmt.Errorf("expected empty non-nil slice, got %#v", empty)
		}
		found, err := tokens.ReadByID(ctx, txn, "alice", "T1")
		if err != nil {
			return err
		}
		if !found.ExpiresAt.Equal(expires) {
			return fmt.Errorf("expected expiry %s, got %s", expires, found.ExpiresAt)
		}
		return nil
	})

	checks := map[string]func(core.Transaction) error{
		"read": func(txn core.Transaction) error {
			_, err := tokens.ReadByID(ctx, txn, "bob", "t1")
			return err
		},
		"update": func(txn core.Transaction) error {
			return tokens.Update(ctx, txn, auth.TokenEntry{ID: "t1", OwnerID: "bob", ExpiresAt: expires})
		},
		"delete": func(txn core.Transaction) error {
			return tokens.Delete(ctx, txn, "bob", "t1")
		},
	}
	for name, check := range checks {
		if err := runWrite(factory, check); !core.IsNotFound(err) {
			t.Fatalf("%s with foreign owner: expected not found, got %v", name, err)
		}
	}
}

func TestCoordinator_AbortDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)
	invitations := factory.InvitationProvider()
	failure := errors.New("boom")

	err := runWrite(factory, func(txn core.Transaction) error {
		if _, err := invitations.Create(ctx, txn, auth.Invitation{ID: "code-1", Roles: []string{"reader"}}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected original failure, got %v", err)
	}

	mustWrite(t, factory, func(txn core.Transaction) error {
		entries, err := invitations.ReadAll(ctx, txn)
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			return fmt.Errorf("expected rolled back invitation, got %d", len(entries))
		}
		return nil
	})
}

func TestCoordinator_ResolvedHandleIsRejected(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)

	txn, err := factory.Coordinator().Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if txn.State() != core.TxCommitted {
		t.Fatalf("expected committed state, got %v", txn.State())
	}
	if err := txn.Commit(ctx); !errors.Is(err, core.ErrTransactionResolved) {
		t.Fatalf("expected resolved error on second commit, got %v", err)
	}
	if err := txn.Abort(ctx); !errors.Is(err, core.ErrTransactionResolved) {
		t.Fatalf("expected resolved error on abort, got %v", err)
	}
	if _, err := factory.AccountProvider().ReadAll(ctx, txn); !errors.Is(err, core.ErrTransactionResolved) {
		t.Fatalf("expected provider to reject resolved handle, got %v", err)
	}
	txn.Release(ctx)
}

func TestCoordinator_CancelledCommitRollsBack(t *testing.T) {
	factory := newFactory(t)
	ctx, cancel := context.WithCancel(context.Background())

	txn, err := factory.Coordinator().Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := factory.InvitationProvider().Create(ctx, txn, auth.Invitation{ID: "late", Roles: []string{"reader"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	cancel()
	if err := txn.Commit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if txn.State() != core.TxAborted {
		t.Fatalf("expected aborted state, got %v", txn.State())
	}

	err = runWrite(factory, func(txn core.Transaction) error {
		_, err := factory.InvitationProvider().ReadByID(context.Background(), txn, "late")
		return err
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected cancelled write to be discarded, got %v", err)
	}
}

func TestDomainServiceOverSQL_CommitsAndReadsInOrder(t *testing.T) {
	ctx := context.Background()
	factory := newFactory(t)
	service := core.NewDomainService(
		"invitations",
		core.NewRunner(factory.Coordinator(), core.NopObserver()),
		core.NewAtomicService[auth.Invitation, auth.Invitation, auth.Invitation](
			factory.InvitationProvider(),
			core.TransformFuncs[auth.Invitation, auth.Invitation, auth.Invitation]{
				Create: func(in auth.Invitation) (auth.Invitation, error) { return in, nil },
				Update: func(id string, in auth.Invitation) (auth.Invitation, error) {
					in.ID = id
					return in, nil
				},
			},
		),
	)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for index, id := range []string{"c-2", "c-1", "c-3"} {
		invite := auth.Invitation{ID: id, Roles: []string{"reader"}, CreatedAt: base.Add(time.Duration(index) * time.Minute)}
		if _, err := service.Create(ctx, invite); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	all, err := service.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	got := make([]string, 0, len(all))
	for _, entry := range all {
		got = append(got, entry.ID)
	}
	if fmt.Sprint(got) != "[c-2 c-1 c-3]" {
		t.Fatalf("expected creation order, got %v", got)
	}
}

func newFactory(t *testing.T) *sqlstore.RepositoryFactory {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	t.Cleanup(cleanup)

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	return factory
}

func runWrite(factory *sqlstore.RepositoryFactory, fn func(core.Transaction) error) error {
	_, err := core.InTransaction(context.Background(), factory.Coordinator(), func(ctx context.Context, txn core.Transaction) (struct{}, error) {
		return struct{}{}, fn(txn)
	})
	return err
}

func mustWrite(t *testing.T, factory *sqlstore.RepositoryFactory, fn func(core.Transaction) error) {
	t.Helper()
	if err := runWrite(factory, fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func account(id string, roles ...string) auth.Account {
	return auth.Account{
		ID:           id,
		PasswordHash: "digest",
		Roles:        roles,
		DisplayName:  "User " + id,
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:resources-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = resourcemigrations.Register(
		ctx,
		resourcemigrations.ForDialect(resourcemigrations.DialectSQLite, func(fsys fs.FS) {
			client.RegisterSQLMigrations(fsys)
		}),
		resourcemigrations.WithValidationTargets(resourcemigrations.DialectSQLite),
	)
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
