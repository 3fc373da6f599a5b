package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockFactory(t *testing.T) (*RepositoryFactory, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	factory, err := NewRepositoryFactoryFromDB(bun.NewDB(sqlDB, pgdialect.New()))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, mock
}

func TestPostgresDeleteWithoutRowsIsNotFound(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "resource_invitations"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := core.InTransaction(context.Background(), factory.Coordinator(), func(ctx context.Context, txn core.Transaction) (struct{}, error) {
		return struct{}{}, factory.InvitationProvider().Delete(ctx, txn, "missing")
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresOwnedDeleteFiltersByOwnerAndID(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "resource_refresh_tokens".*lower\("owner_id"\) = lower\('alice'\).*lower\("id"\) = lower\('t1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := core.InTransaction(context.Background(), factory.Coordinator(), func(ctx context.Context, txn core.Transaction) (struct{}, error) {
		return struct{}{}, factory.TokenProvider().Delete(ctx, txn, " alice ", "t1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateMapsSQLStates(t *testing.T) {
	cases := []struct {
		code  pq.ErrorCode
		check func(error) bool
	}{
		{code: "23505", check: core.IsConflict},
		{code: "23514", check: core.IsValidation},
		{code: "23502", check: core.IsValidation},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			factory, mock := newMockFactory(t)
			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "resource_accounts"`).WillReturnError(&pq.Error{Code: tc.code})
			mock.ExpectRollback()

			_, err := core.InTransaction(context.Background(), factory.Coordinator(), func(ctx context.Context, txn core.Transaction) (struct{}, error) {
				return struct{}{}, factory.AccountProvider().Update(ctx, txn, auth.Account{
					ID:           "u1",
					PasswordHash: "digest",
					Roles:        []string{"reader"},
					DisplayName:  "User",
				})
			})
			if !tc.check(err) {
				t.Fatalf("unexpected classification for %s: %v", tc.code, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresCreateMapsSQLStates(t *testing.T) {
	cases := []struct {
		code  pq.ErrorCode
		check func(error) bool
	}{
		{code: "23505", check: core.IsConflict},
		{code: "23514", check: core.IsValidation},
		{code: "23502", check: core.IsValidation},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			factory, mock := newMockFactory(t)
			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO "resource_accounts"`).WillReturnError(&pq.Error{Code: tc.code})
			mock.ExpectRollback()

			_, err := core.InTransaction(context.Background(), factory.Coordinator(), func(ctx context.Context, txn core.Transaction) (auth.Account, error) {
				return factory.AccountProvider().Create(ctx, txn, auth.Account{
					ID:           "u1",
					PasswordHash: "digest",
					Roles:        []string{"reader"},
					DisplayName:  "User",
				})
			})
			if !tc.check(err) {
				t.Fatalf("unexpected classification for %s: %v", tc.code, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresBeginFailureIsInternal(t *testing.T) {
	factory, mock := newMockFactory(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := factory.Coordinator().Begin(context.Background())
	if core.KindOf(err) != core.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestOpenTxRejectsForeignHandles(t *testing.T) {
	if _, err := openTx(nil); core.KindOf(err) != core.KindInternal {
		t.Fatalf("expected internal error for nil handle, got %v", err)
	}
	if _, err := openTx(&Tx{state: core.TxAborted}); !errors.Is(err, core.ErrTransactionResolved) {
		t.Fatalf("expected resolved error, got %v", err)
	}
}

func TestResolveBunDB(t *testing.T) {
	if _, err := resolveBunDB(nil); err == nil {
		t.Fatalf("expected nil candidate to fail")
	}
	if _, err := resolveBunDB("not a db"); err == nil {
		t.Fatalf("expected unsupported candidate to fail")
	}
}
