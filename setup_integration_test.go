package resources_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	resources "github.com/goliatone/go-resources"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
	resourcemigrations "github.com/goliatone/go-resources/migrations"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"
)

type sqliteConfig struct {
	dsn string
}

func (c sqliteConfig) GetDebug() bool                { return false }
func (c sqliteConfig) GetDriver() string             { return "sqlite3" }
func (c sqliteConfig) GetServer() string             { return c.dsn }
func (c sqliteConfig) GetPingTimeout() time.Duration { return time.Second }
func (c sqliteConfig) GetOtelIdentifier() string     { return "go-resources-setup-tests" }

func newMigratedClient(t *testing.T) *persistence.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:resources-setup-%d?mode=memory&cache=shared", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(sqliteConfig{dsn: dsn}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if _, err := resourcemigrations.Register(
		ctx,
		resourcemigrations.ForDialect(resourcemigrations.DialectSQLite, func(fsys fs.FS) {
			client.RegisterSQLMigrations(fsys)
		}),
		resourcemigrations.WithValidationTargets(resourcemigrations.DialectSQLite),
	); err != nil {
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func TestSetupWithPersistence_RunsWorkflowOverSQL(t *testing.T) {
	client := newMigratedClient(t)
	ctx := context.Background()

	res, err := resources.Setup(ctx, resources.Config{},
		resources.WithPersistence(client),
		resources.WithSigningSecret("sql-secret"),
		resources.WithHasher(auth.BcryptHasher{Cost: bcrypt.MinCost}),
	)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer res.Close()

	if _, err := res.Invitations().Create(ctx, auth.InvitationInput{Code: "SQL-INV", Roles: []string{"A", "B"}}); err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	pair, err := res.Workflow().SignUp(ctx, resources.SignUpRequest{
		ID:             "U1",
		DisplayName:    "User One",
		InvitationCode: "SQL-INV",
		Password:       "pw",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := res.Invitations().ReadByID(ctx, "sql-inv"); !core.IsNotFound(err) {
		t.Fatalf("expected consumed invitation, got %v", err)
	}

	if _, err := res.Workflow().SignUp(ctx, resources.SignUpRequest{
		ID:             "u1",
		DisplayName:    "Again",
		InvitationCode: "SQL-INV",
		Password:       "pw",
	}); !core.IsConflict(err) {
		t.Fatalf("expected conflict for case-insensitive duplicate, got %v", err)
	}

	rotated, err := res.Workflow().Refresh(ctx, resources.RefreshRequest{RefreshToken: pair.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := res.Workflow().Refresh(ctx, resources.RefreshRequest{RefreshToken: pair.RefreshToken}); !core.IsNotFound(err) {
		t.Fatalf("expected reused refresh token to be not found, got %v", err)
	}

	records, err := res.Tokens().ReadAll(ctx, "U1")
	if err != nil {
		t.Fatalf("list refresh records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one outstanding refresh record, got %d", len(records))
	}

	if _, err := res.Workflow().SignIn(ctx, resources.SignInRequest{ID: "U1", Password: "wrong"}); !core.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized sign in, got %v", err)
	}
	if err := res.Workflow().SignOut(ctx, resources.RefreshRequest{RefreshToken: rotated.RefreshToken}); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	records, err = res.Tokens().ReadAll(ctx, "U1")
	if err != nil {
		t.Fatalf("list refresh records after sign out: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no refresh records after sign out, got %d", len(records))
	}
}
