package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// identityHandlers builds repository handlers for records keyed by a string
// id. Caller-chosen ids are kept; a generated uuid only fills a blank id.
func identityHandlers[R any](idOf func(*R) *string) repository.ModelHandlers[*R] {
	return repository.ModelHandlers[*R]{
		NewRecord: func() *R {
			return new(R)
		},
		GetID: func(record *R) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(*idOf(record))
		},
		SetID: func(record *R, id uuid.UUID) {
			if record == nil {
				return
			}
			if strings.TrimSpace(*idOf(record)) != "" {
				return
			}
			*idOf(record) = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *R) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(*idOf(record))
		},
	}
}

func accountHandlers() repository.ModelHandlers[*accountRecord] {
	return identityHandlers(func(record *accountRecord) *string { return &record.ID })
}

func invitationHandlers() repository.ModelHandlers[*invitationRecord] {
	return identityHandlers(func(record *invitationRecord) *string { return &record.ID })
}

func refreshTokenHandlers() repository.ModelHandlers[*refreshTokenRecord] {
	return identityHandlers(func(record *refreshTokenRecord) *string { return &record.ID })
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
