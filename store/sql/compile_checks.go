package sqlstore

import (
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
)

var (
	_ core.TransactionCoordinator         = (*Coordinator)(nil)
	_ core.Transaction                    = (*Tx)(nil)
	_ core.Provider[auth.Account]         = (*Provider[auth.Account, accountRecord])(nil)
	_ core.Provider[auth.Invitation]      = (*Provider[auth.Invitation, invitationRecord])(nil)
	_ core.OwnedProvider[auth.TokenEntry] = (*OwnedProvider[auth.TokenEntry, refreshTokenRecord])(nil)
)
