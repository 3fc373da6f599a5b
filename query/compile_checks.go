package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
)

var (
	_ gocmd.Querier[ReadResourceMessage, auth.Account]       = (*ReadQuery[auth.Account])(nil)
	_ gocmd.Querier[ListResourcesMessage, []auth.Invitation] = (*ListQuery[auth.Invitation])(nil)
	_ gocmd.Querier[ListOwnedMessage, []auth.TokenEntry]     = (*ListOwnedQuery[auth.TokenEntry])(nil)
	_ gocmd.Querier[DiscoverLinksMessage, []core.ClaimLink]  = (*DiscoverLinksQuery)(nil)
	_ gocmd.Querier[AuthenticateMessage, core.ClaimSet]      = (*AuthenticateQuery)(nil)

	_ Reader[auth.Account]         = (*auth.AccountService)(nil)
	_ Reader[auth.Invitation]      = (*auth.InvitationService)(nil)
	_ OwnedReader[auth.TokenEntry] = (*auth.TokenService)(nil)
	_ Authenticator                = (*auth.Workflow)(nil)
)
