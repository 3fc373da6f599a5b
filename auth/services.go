package auth

import "github.com/goliatone/go-resources/core"

const (
	RoleAdmin = "admin"

	NamespaceInvitations   = "invitations"
	NamespaceAccounts      = "accounts"
	NamespaceRefreshTokens = "refresh-tokens"
)

type (
	InvitationService = core.DomainService[InvitationInput, Invitation, InvitationInput]
	AccountService    = core.DomainService[AccountInput, Account, AccountInput]
	TokenService      = core.OwnedDomainService[TokenInput, TokenEntry, TokenInput]
)

// NewInvitationService manages invitations for administrators.
func NewInvitationService(runner core.Runner, provider core.Provider[Invitation], transforms Transforms) *InvitationService {
	return core.NewDomainService(
		CollectionInvitations,
		runner,
		core.NewAtomicService[InvitationInput, Invitation, InvitationInput](provider, transforms.Invitations()),
	)
}

func NewAccountService(runner core.Runner, provider core.Provider[Account], transforms Transforms) *AccountService {
	return core.NewDomainService(
		CollectionAccounts,
		runner,
		core.NewAtomicService[AccountInput, Account, AccountInput](provider, transforms.Accounts()),
	)
}

// NewTokenService lists and revokes the refresh token records of one
// account.
func NewTokenService(runner core.Runner, provider core.OwnedProvider[TokenEntry], transforms Transforms) *TokenService {
	return core.NewOwnedDomainService(
		CollectionRefreshTokens,
		runner,
		core.NewOwnedAtomicService[TokenInput, TokenEntry, TokenInput](provider, transforms.Tokens()),
	)
}

// InvitationLinks gates every invitation operation behind the admin role.
func InvitationLinks() core.LinkPolicy {
	admin := []core.Claim{core.RoleClaim(RoleAdmin)}
	return core.NewLinkPolicy(NamespaceInvitations, map[core.Operation][]core.Claim{
		core.OperationCreate: admin,
		core.OperationList:   admin,
		core.OperationRead:   admin,
		core.OperationUpdate: admin,
		core.OperationDelete: admin,
	})
}

func AccountLinks() core.LinkPolicy {
	admin := []core.Claim{core.RoleClaim(RoleAdmin)}
	return core.NewLinkPolicy(NamespaceAccounts, map[core.Operation][]core.Claim{
		core.OperationCreate: admin,
		core.OperationList:   admin,
		core.OperationRead:   admin,
		core.OperationUpdate: admin,
		core.OperationDelete: admin,
	})
}

// TokenLinks lets the owner of a set of refresh tokens list and revoke
// them.
func TokenLinks(ownerID string) core.LinkPolicy {
	owner := []core.Claim{core.SubjectClaim(ownerID)}
	return core.NewLinkPolicy(NamespaceRefreshTokens, map[core.Operation][]core.Claim{
		core.OperationList:   owner,
		core.OperationRead:   owner,
		core.OperationDelete: owner,
		core.OperationCreate: {core.RoleClaim(RoleAdmin)},
		core.OperationUpdate: {core.RoleClaim(RoleAdmin)},
	})
}
