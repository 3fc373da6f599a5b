package command

import (
	"strings"

	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
)

const (
	TypeSignUp           = "resources.command.auth.sign_up"
	TypeSignIn           = "resources.command.auth.sign_in"
	TypeChangePassword   = "resources.command.auth.change_password"
	TypeRefresh          = "resources.command.auth.refresh"
	TypeSignOut          = "resources.command.auth.sign_out"
	TypeCreateInvitation = "resources.command.invitation.create"
	TypeDeleteInvitation = "resources.command.invitation.delete"
)

type SignUpMessage struct {
	Request auth.SignUpRequest
}

func (SignUpMessage) Type() string { return TypeSignUp }

// Validate leaves the invitation code to the workflow, which answers a blank
// code like an unknown one.
func (m SignUpMessage) Validate() error {
	if strings.TrimSpace(m.Request.ID) == "" {
		return commandValidationError("id", "is required")
	}
	if m.Request.Password == "" {
		return commandValidationError("password", "is required")
	}
	return nil
}

type SignInMessage struct {
	Request auth.SignInRequest
}

func (SignInMessage) Type() string { return TypeSignIn }

func (m SignInMessage) Validate() error {
	if strings.TrimSpace(m.Request.ID) == "" {
		return commandValidationError("id", "is required")
	}
	return nil
}

// ChangePasswordMessage carries the caller id taken from the verified
// access token, never from the request body.
type ChangePasswordMessage struct {
	Request auth.ChangePasswordRequest
}

func (ChangePasswordMessage) Type() string { return TypeChangePassword }

func (m ChangePasswordMessage) Validate() error {
	if m.Request.NewPassword == "" {
		return commandValidationError("new_password", "is required")
	}
	return nil
}

type RefreshMessage struct {
	Request auth.RefreshRequest
}

func (RefreshMessage) Type() string { return TypeRefresh }

func (m RefreshMessage) Validate() error {
	if strings.TrimSpace(m.Request.RefreshToken) == "" {
		return commandValidationError("refresh_token", "is required")
	}
	return nil
}

type SignOutMessage struct {
	Request auth.RefreshRequest
}

func (SignOutMessage) Type() string { return TypeSignOut }

func (m SignOutMessage) Validate() error {
	if strings.TrimSpace(m.Request.RefreshToken) == "" {
		return commandValidationError("refresh_token", "is required")
	}
	return nil
}

// CreateInvitationMessage carries the verified claims of the caller so the
// command can authorize against the invitation link policy.
type CreateInvitationMessage struct {
	Claims core.ClaimSet
	Input  auth.InvitationInput
}

func (CreateInvitationMessage) Type() string { return TypeCreateInvitation }

func (m CreateInvitationMessage) Validate() error {
	if strings.TrimSpace(m.Input.Code) == "" {
		return commandValidationError("code", "is required")
	}
	if len(m.Input.Roles) == 0 {
		return commandValidationError("roles", "at least one role is required")
	}
	return nil
}

type DeleteInvitationMessage struct {
	Claims core.ClaimSet
	Code   string
}

func (DeleteInvitationMessage) Type() string { return TypeDeleteInvitation }

func (m DeleteInvitationMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return commandInvalidInputError("command: invitation code is required")
	}
	return nil
}
