package auth

import (
	"time"

	"github.com/goliatone/go-resources/core"
)

const (
	CollectionAccounts      = "accounts"
	CollectionInvitations   = "invitations"
	CollectionRefreshTokens = "refresh_tokens"
)

// Account is an authenticatable identity. PasswordHash is a one-way digest,
// never the plaintext.
type Account struct {
	ID           string    `json:"id"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a Account) GetID() string { return a.ID }

func (a Account) Clone() Account {
	a.Roles = append([]string(nil), a.Roles...)
	return a
}

// Claims lists the subject, display name and one role claim per role.
func (a Account) Claims() []core.Claim {
	claims := make([]core.Claim, 0, len(a.Roles)+2)
	claims = append(claims, core.SubjectClaim(a.ID))
	if a.DisplayName != "" {
		claims = append(claims, core.Claim{Type: core.ClaimTypeName, Value: a.DisplayName})
	}
	for _, role := range a.Roles {
		claims = append(claims, core.RoleClaim(role))
	}
	return claims
}

// Invitation is a one-time sign-up credential. Its id is the code presented
// by the invitee.
type Invitation struct {
	ID        string    `json:"id"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Invitation) GetID() string { return i.ID }

func (i Invitation) Clone() Invitation {
	i.Roles = append([]string(nil), i.Roles...)
	return i
}

// TokenEntry allow-lists one outstanding refresh token for an account.
type TokenEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t TokenEntry) GetID() string      { return t.ID }
func (t TokenEntry) GetOwnerID() string { return t.OwnerID }

// Expired reports whether now is past the validity boundary.
func (t TokenEntry) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

var (
	_ core.Entry      = Account{}
	_ core.Entry      = Invitation{}
	_ core.OwnedEntry = TokenEntry{}
)
