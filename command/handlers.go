package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
)

// AuthService is the mutating surface of auth.Workflow.
type AuthService interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (auth.TokenPair, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (auth.TokenPair, error)
	ChangePassword(ctx context.Context, req auth.ChangePasswordRequest) (auth.TokenPair, error)
	Refresh(ctx context.Context, req auth.RefreshRequest) (auth.TokenPair, error)
	SignOut(ctx context.Context, req auth.RefreshRequest) error
}

type InvitationAdmin interface {
	Create(ctx context.Context, input auth.InvitationInput) (auth.Invitation, error)
	Delete(ctx context.Context, id string) error
}

type SignUpCommand struct {
	service AuthService
}

func NewSignUpCommand(service AuthService) *SignUpCommand {
	return &SignUpCommand{service: service}
}

func (c *SignUpCommand) Execute(ctx context.Context, msg SignUpMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.SignUp(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SignInCommand struct {
	service AuthService
}

func NewSignInCommand(service AuthService) *SignInCommand {
	return &SignInCommand{service: service}
}

func (c *SignInCommand) Execute(ctx context.Context, msg SignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.SignIn(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ChangePasswordCommand struct {
	service AuthService
}

func NewChangePasswordCommand(service AuthService) *ChangePasswordCommand {
	return &ChangePasswordCommand{service: service}
}

func (c *ChangePasswordCommand) Execute(ctx context.Context, msg ChangePasswordMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.ChangePassword(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshCommand struct {
	service AuthService
}

func NewRefreshCommand(service AuthService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.Refresh(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SignOutCommand struct {
	service AuthService
}

func NewSignOutCommand(service AuthService) *SignOutCommand {
	return &SignOutCommand{service: service}
}

func (c *SignOutCommand) Execute(ctx context.Context, msg SignOutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	return c.service.SignOut(ctx, msg.Request)
}

type CreateInvitationCommand struct {
	service InvitationAdmin
	policy  core.LinkPolicy
}

func NewCreateInvitationCommand(service InvitationAdmin, policy core.LinkPolicy) *CreateInvitationCommand {
	return &CreateInvitationCommand{service: service, policy: policy}
}

func (c *CreateInvitationCommand) Execute(ctx context.Context, msg CreateInvitationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: invitation service is required")
	}
	if err := c.policy.Authorize(core.OperationCreate, msg.Claims); err != nil {
		return err
	}
	out, err := c.service.Create(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteInvitationCommand struct {
	service InvitationAdmin
	policy  core.LinkPolicy
}

func NewDeleteInvitationCommand(service InvitationAdmin, policy core.LinkPolicy) *DeleteInvitationCommand {
	return &DeleteInvitationCommand{service: service, policy: policy}
}

func (c *DeleteInvitationCommand) Execute(ctx context.Context, msg DeleteInvitationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: invitation service is required")
	}
	if err := c.policy.Authorize(core.OperationDelete, msg.Claims); err != nil {
		return err
	}
	return c.service.Delete(ctx, msg.Code)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
