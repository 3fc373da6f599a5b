package auth

import (
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-resources/core"
)

// InvitationInput creates or replaces an invitation. Code becomes the
// invitation id.
type InvitationInput struct {
	Code  string   `json:"code"`
	Roles []string `json:"roles"`
}

// AccountInput creates or replaces an account through the administrative
// account service. Password is hashed by the transform.
type AccountInput struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Password    string   `json:"password"`
	Roles       []string `json:"roles"`
}

// TokenInput creates or extends a refresh token record. A zero ExpiresAt
// means now plus the refresh ttl.
type TokenInput struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Transforms builds the entry transforms of the auth resources.
type Transforms struct {
	Hasher     Hasher
	MaxRoles   int
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (t Transforms) Invitations() core.TransformFuncs[InvitationInput, Invitation, InvitationInput] {
	build := func(id string, input InvitationInput) (Invitation, error) {
		roles, err := NormalizeRoles(input.Roles, t.maxRoles())
		if err != nil {
			return Invitation{}, err
		}
		return Invitation{ID: strings.TrimSpace(id), Roles: roles, CreatedAt: t.now()}, nil
	}
	return core.TransformFuncs[InvitationInput, Invitation, InvitationInput]{
		Create: func(input InvitationInput) (Invitation, error) {
			if err := core.RequireID("code", input.Code); err != nil {
				return Invitation{}, err
			}
			return build(input.Code, input)
		},
		Update: build,
	}
}

func (t Transforms) Accounts() core.TransformFuncs[AccountInput, Account, AccountInput] {
	build := func(id string, input AccountInput) (Account, error) {
		roles, err := NormalizeRoles(input.Roles, t.maxRoles())
		if err != nil {
			return Account{}, err
		}
		if t.Hasher == nil {
			return Account{}, core.InternalError("auth: password hasher is not configured")
		}
		if input.Password == "" {
			return Account{}, core.ValidationError("account input is invalid", goerrors.FieldError{
				Field:   "password",
				Message: "is required",
			})
		}
		digest, err := t.Hasher.Hash(input.Password)
		if err != nil {
			return Account{}, hashFailure(err, "auth: password was rejected")
		}
		now := t.now()
		return Account{
			ID:           strings.TrimSpace(id),
			PasswordHash: digest,
			Roles:        roles,
			DisplayName:  strings.TrimSpace(input.DisplayName),
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	}
	return core.TransformFuncs[AccountInput, Account, AccountInput]{
		Create: func(input AccountInput) (Account, error) {
			if err := core.RequireID("id", input.ID); err != nil {
				return Account{}, err
			}
			return build(input.ID, input)
		},
		Update: build,
	}
}

func (t Transforms) Tokens() core.OwnedTransformFuncs[TokenInput, TokenEntry, TokenInput] {
	build := func(ownerID, id string, input TokenInput) (TokenEntry, error) {
		now := t.now()
		expiresAt := input.ExpiresAt.UTC()
		if input.ExpiresAt.IsZero() {
			if t.RefreshTTL <= 0 {
				return TokenEntry{}, core.InternalError("auth: refresh ttl is not configured")
			}
			expiresAt = now.Add(t.RefreshTTL)
		}
		return TokenEntry{
			ID:        strings.TrimSpace(id),
			OwnerID:   strings.TrimSpace(ownerID),
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}, nil
	}
	return core.OwnedTransformFuncs[TokenInput, TokenEntry, TokenInput]{
		Create: func(ownerID string, input TokenInput) (TokenEntry, error) {
			return build(ownerID, newTokenID(t.now()), input)
		},
		Update: build,
	}
}

func (t Transforms) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

func (t Transforms) maxRoles() int {
	if t.MaxRoles <= 0 || t.MaxRoles > MaxRoles {
		return MaxRoles
	}
	return t.MaxRoles
}

// NormalizeRoles trims roles and drops blanks and case-insensitive
// duplicates, keeping first-seen order. The result must hold 1..limit roles.
func NormalizeRoles(roles []string, limit int) ([]string, error) {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		trimmed := strings.TrimSpace(role)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 || len(out) > limit {
		return nil, core.ValidationError("roles are invalid", goerrors.FieldError{
			Field:   "roles",
			Message: fmt.Sprintf("must hold between 1 and %d roles", limit),
		})
	}
	return out, nil
}
