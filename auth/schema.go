package auth

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-resources/core"
	memstore "github.com/goliatone/go-resources/store/memory"
)

// MaxRoles bounds the role set of accounts and invitations.
const MaxRoles = 10

// AccountSchema mirrors the resource_accounts table constraints.
func AccountSchema(doc any) error {
	account, ok := doc.(Account)
	if !ok {
		return fmt.Errorf("expected Account document, got %T", doc)
	}
	var fields []goerrors.FieldError
	if account.PasswordHash == "" {
		fields = append(fields, goerrors.FieldError{Field: "password_hash", Message: "is required"})
	}
	if strings.TrimSpace(account.DisplayName) == "" {
		fields = append(fields, goerrors.FieldError{Field: "display_name", Message: "is required"})
	}
	if field, bad := checkRoles(account.Roles); bad {
		fields = append(fields, field)
	}
	return schemaError("account", fields)
}

func InvitationSchema(doc any) error {
	invitation, ok := doc.(Invitation)
	if !ok {
		return fmt.Errorf("expected Invitation document, got %T", doc)
	}
	field, bad := checkRoles(invitation.Roles)
	if !bad {
		return nil
	}
	return schemaError("invitation", []goerrors.FieldError{field})
}

func TokenEntrySchema(doc any) error {
	entry, ok := doc.(TokenEntry)
	if !ok {
		return fmt.Errorf("expected TokenEntry document, got %T", doc)
	}
	if entry.ExpiresAt.IsZero() {
		return schemaError("refresh token", []goerrors.FieldError{{Field: "expires_at", Message: "is required"}})
	}
	return nil
}

// MemorySchemas registers the auth collection validators on a memstore.
func MemorySchemas() []memstore.Option {
	return []memstore.Option{
		memstore.WithSchema(CollectionAccounts, AccountSchema),
		memstore.WithSchema(CollectionInvitations, InvitationSchema),
		memstore.WithSchema(CollectionRefreshTokens, TokenEntrySchema),
	}
}

func checkRoles(roles []string) (goerrors.FieldError, bool) {
	if len(roles) == 0 || len(roles) > MaxRoles {
		return goerrors.FieldError{
			Field:   "roles",
			Message: fmt.Sprintf("must hold between 1 and %d roles", MaxRoles),
		}, true
	}
	return goerrors.FieldError{}, false
}

func schemaError(subject string, fields []goerrors.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return core.ValidationError(subject+" document rejected", fields...)
}
