package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-resources/auth"
	"github.com/uptrace/bun"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:resource_accounts,alias:ra"`

	ID           string    `bun:"id,pk"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Roles        []string  `bun:"roles,type:jsonb,notnull"`
	DisplayName  string    `bun:"display_name,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type invitationRecord struct {
	bun.BaseModel `bun:"table:resource_invitations,alias:ri"`

	ID        string    `bun:"id,pk"`
	Roles     []string  `bun:"roles,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type refreshTokenRecord struct {
	bun.BaseModel `bun:"table:resource_refresh_tokens,alias:rrt"`

	ID        string    `bun:"id,pk"`
	OwnerID   string    `bun:"owner_id,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func accountMapper() Mapper[auth.Account, accountRecord] {
	return Mapper[auth.Account, accountRecord]{
		ToRecord: func(entry auth.Account) *accountRecord {
			return &accountRecord{
				ID:           strings.TrimSpace(entry.ID),
				PasswordHash: entry.PasswordHash,
				Roles:        copyRoles(entry.Roles),
				DisplayName:  entry.DisplayName,
				CreatedAt:    entry.CreatedAt,
				UpdatedAt:    entry.UpdatedAt,
			}
		},
		ToEntry: func(record *accountRecord) auth.Account {
			return auth.Account{
				ID:           record.ID,
				PasswordHash: record.PasswordHash,
				Roles:        copyRoles(record.Roles),
				DisplayName:  record.DisplayName,
				CreatedAt:    record.CreatedAt.UTC(),
				UpdatedAt:    record.UpdatedAt.UTC(),
			}
		},
	}
}

func invitationMapper() Mapper[auth.Invitation, invitationRecord] {
	return Mapper[auth.Invitation, invitationRecord]{
		ToRecord: func(entry auth.Invitation) *invitationRecord {
			return &invitationRecord{
				ID:        strings.TrimSpace(entry.ID),
				Roles:     copyRoles(entry.Roles),
				CreatedAt: entry.CreatedAt,
			}
		},
		ToEntry: func(record *invitationRecord) auth.Invitation {
			return auth.Invitation{
				ID:        record.ID,
				Roles:     copyRoles(record.Roles),
				CreatedAt: record.CreatedAt.UTC(),
			}
		},
	}
}

func refreshTokenMapper() Mapper[auth.TokenEntry, refreshTokenRecord] {
	return Mapper[auth.TokenEntry, refreshTokenRecord]{
		ToRecord: func(entry auth.TokenEntry) *refreshTokenRecord {
			return &refreshTokenRecord{
				ID:        strings.TrimSpace(entry.ID),
				OwnerID:   strings.TrimSpace(entry.OwnerID),
				ExpiresAt: entry.ExpiresAt.UTC(),
				CreatedAt: entry.CreatedAt,
			}
		},
		ToEntry: func(record *refreshTokenRecord) auth.TokenEntry {
			return auth.TokenEntry{
				ID:        record.ID,
				OwnerID:   record.OwnerID,
				ExpiresAt: record.ExpiresAt.UTC(),
				CreatedAt: record.CreatedAt.UTC(),
			}
		},
	}
}

func copyRoles(roles []string) []string {
	return append([]string{}, roles...)
}
