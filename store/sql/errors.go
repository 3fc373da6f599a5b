package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-resources/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLSTATE codes from the postgres integrity and data exception classes.
const (
	sqlStateUniqueViolation  = "23505"
	sqlStateCheckViolation   = "23514"
	sqlStateNotNullViolation = "23502"
	sqlStateInvalidParameter = "22023"
	sqlStateSerialization    = "40001"
)

// Text codes go-repository-bun attaches to retryable conflicts, which carry
// no database category.
var repositoryConflictCodes = []string{"SERIALIZATION_FAILURE", "DEADLOCK_DETECTED"}

// classifyError maps driver failures onto resource error kinds. Inserts reach
// it already rewritten by go-repository-bun, raw bun statements with the
// driver error. Constraint violations win over any category a lower layer
// attached.
func classifyError(err error, subject string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.WrapError(err, core.KindNotFound, fmt.Sprintf("sqlstore: %s not found", subject))
	}

	switch {
	case repository.IsDuplicatedKey(err):
		return core.WrapError(err, core.KindConflict, describe(core.KindConflict, subject))
	case repository.IsConstraintViolation(err):
		return core.WrapError(err, core.KindValidation, describe(core.KindValidation, subject))
	case repository.IsRecordNotFound(err):
		return core.WrapError(err, core.KindNotFound, fmt.Sprintf("sqlstore: %s not found", subject))
	case hasTextCode(err, repositoryConflictCodes...):
		return core.WrapError(err, core.KindConflict, describe(core.KindConflict, subject))
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		kind := core.KindValidation
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			kind = core.KindConflict
		}
		return core.WrapError(err, kind, describe(kind, subject))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := kindForSQLState(string(pqErr.Code)); ok {
			return core.WrapError(err, kind, describe(kind, subject))
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := kindForSQLState(pgErr.Code); ok {
			return core.WrapError(err, kind, describe(kind, subject))
		}
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "unique constraint failed"),
		strings.Contains(message, "duplicate key value violates unique constraint"):
		return core.WrapError(err, core.KindConflict, describe(core.KindConflict, subject))
	case strings.Contains(message, "check constraint failed"),
		strings.Contains(message, "not null constraint failed"),
		strings.Contains(message, "violates check constraint"),
		strings.Contains(message, "violates not-null constraint"):
		return core.WrapError(err, core.KindValidation, describe(core.KindValidation, subject))
	}
	if core.KindOf(err) != core.KindInternal {
		return err
	}
	return core.WrapError(err, core.KindInternal, fmt.Sprintf("sqlstore: %s operation failed", subject))
}

func hasTextCode(err error, codes ...string) bool {
	var retryable *goerrors.RetryableError
	if goerrors.As(err, &retryable) && retryable.BaseError != nil {
		return slices.Contains(codes, retryable.BaseError.TextCode)
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return slices.Contains(codes, rich.TextCode)
	}
	return false
}

func kindForSQLState(code string) (core.Kind, bool) {
	switch code {
	case sqlStateUniqueViolation, sqlStateSerialization:
		return core.KindConflict, true
	case sqlStateCheckViolation, sqlStateNotNullViolation, sqlStateInvalidParameter:
		return core.KindValidation, true
	default:
		return "", false
	}
}

func describe(kind core.Kind, subject string) string {
	switch kind {
	case core.KindConflict:
		return fmt.Sprintf("sqlstore: %s already exists", subject)
	case core.KindValidation:
		return fmt.Sprintf("sqlstore: %s rejected by schema", subject)
	default:
		return fmt.Sprintf("sqlstore: %s operation failed", subject)
	}
}
