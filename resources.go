package resources

import (
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
)

type Config = core.Config
type AuthConfig = core.AuthConfig

type Claim = core.Claim
type ClaimSet = core.ClaimSet
type ClaimLink = core.ClaimLink
type LinkPolicy = core.LinkPolicy

type Account = auth.Account
type Invitation = auth.Invitation
type TokenEntry = auth.TokenEntry
type TokenPair = auth.TokenPair

type SignUpRequest = auth.SignUpRequest
type SignInRequest = auth.SignInRequest
type ChangePasswordRequest = auth.ChangePasswordRequest
type RefreshRequest = auth.RefreshRequest

type InvitationInput = auth.InvitationInput
type AccountInput = auth.AccountInput

func DefaultConfig() Config {
	return core.DefaultConfig()
}
