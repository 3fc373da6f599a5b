package resources

import (
	"fmt"

	"github.com/goliatone/go-resources/auth"
	rescommand "github.com/goliatone/go-resources/command"
	"github.com/goliatone/go-resources/core"
	resquery "github.com/goliatone/go-resources/query"
)

type Commands struct {
	SignUp           *rescommand.SignUpCommand
	SignIn           *rescommand.SignInCommand
	ChangePassword   *rescommand.ChangePasswordCommand
	Refresh          *rescommand.RefreshCommand
	SignOut          *rescommand.SignOutCommand
	CreateInvitation *rescommand.CreateInvitationCommand
	DeleteInvitation *rescommand.DeleteInvitationCommand
}

type Queries struct {
	Authenticate            *resquery.AuthenticateQuery
	ReadInvitation          *resquery.ReadQuery[auth.Invitation]
	ListInvitations         *resquery.ListQuery[auth.Invitation]
	ReadAccount             *resquery.ReadQuery[auth.Account]
	ListAccounts            *resquery.ListQuery[auth.Account]
	ListTokens              *resquery.ListOwnedQuery[auth.TokenEntry]
	DiscoverInvitationLinks *resquery.DiscoverLinksQuery
	DiscoverAccountLinks    *resquery.DiscoverLinksQuery
}

// Facade exposes the command and query handlers of a Resources instance for
// callers that dispatch directly instead of through the go-command bus.
type Facade struct {
	resources *Resources
	commands  Commands
	queries   Queries
}

func NewFacade(res *Resources) (*Facade, error) {
	if res == nil || res.workflow == nil {
		return nil, fmt.Errorf("resources: wired resources are required")
	}
	invitationLinks := res.Links(auth.InvitationLinks())
	accountLinks := res.Links(auth.AccountLinks())
	tokenLinks := func(ownerID string) core.LinkPolicy {
		return res.Links(auth.TokenLinks(ownerID))
	}

	facade := &Facade{resources: res}
	facade.commands = Commands{
		SignUp:           rescommand.NewSignUpCommand(res.workflow),
		SignIn:           rescommand.NewSignInCommand(res.workflow),
		ChangePassword:   rescommand.NewChangePasswordCommand(res.workflow),
		Refresh:          rescommand.NewRefreshCommand(res.workflow),
		SignOut:          rescommand.NewSignOutCommand(res.workflow),
		CreateInvitation: rescommand.NewCreateInvitationCommand(res.invitations, invitationLinks),
		DeleteInvitation: rescommand.NewDeleteInvitationCommand(res.invitations, invitationLinks),
	}
	facade.queries = Queries{
		Authenticate:            resquery.NewAuthenticateQuery(res.workflow),
		ReadInvitation:          resquery.NewReadQuery[auth.Invitation](res.invitations, invitationLinks),
		ListInvitations:         resquery.NewListQuery[auth.Invitation](res.invitations, invitationLinks),
		ReadAccount:             resquery.NewReadQuery[auth.Account](res.accounts, accountLinks),
		ListAccounts:            resquery.NewListQuery[auth.Account](res.accounts, accountLinks),
		ListTokens:              resquery.NewListOwnedQuery[auth.TokenEntry](res.tokens, tokenLinks),
		DiscoverInvitationLinks: resquery.NewDiscoverLinksQuery(invitationLinks),
		DiscoverAccountLinks:    resquery.NewDiscoverLinksQuery(accountLinks),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Resources() *Resources {
	if f == nil {
		return nil
	}
	return f.resources
}
