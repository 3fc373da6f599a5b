package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-resources/auth"
)

var (
	_ gocmd.Commander[SignUpMessage]           = (*SignUpCommand)(nil)
	_ gocmd.Commander[SignInMessage]           = (*SignInCommand)(nil)
	_ gocmd.Commander[ChangePasswordMessage]   = (*ChangePasswordCommand)(nil)
	_ gocmd.Commander[RefreshMessage]          = (*RefreshCommand)(nil)
	_ gocmd.Commander[SignOutMessage]          = (*SignOutCommand)(nil)
	_ gocmd.Commander[CreateInvitationMessage] = (*CreateInvitationCommand)(nil)
	_ gocmd.Commander[DeleteInvitationMessage] = (*DeleteInvitationCommand)(nil)

	_ AuthService     = (*auth.Workflow)(nil)
	_ InvitationAdmin = (*auth.InvitationService)(nil)
)
