package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-resources/core"
)

type SignUpRequest struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	InvitationCode string `json:"invitation_code"`
	Password       string `json:"password"`
}

type SignInRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CallerID    string `json:"caller_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// WorkflowDependencies are the collaborators of a Workflow. Decoder falls
// back to Issuer when nil.
type WorkflowDependencies struct {
	Coordinator core.TransactionCoordinator
	Accounts    core.Provider[Account]
	Invitations core.Provider[Invitation]
	Tokens      core.OwnedProvider[TokenEntry]
	Hasher      Hasher
	Issuer      TokenIssuer
	Decoder     TokenDecoder
	Observer    *core.Observer
	Config      core.AuthConfig
	Now         func() time.Time
}

// Workflow runs the account lifecycle. Every operation touches the
// account, invitation and refresh token services inside one transaction.
type Workflow struct {
	runner      core.Runner
	accounts    *core.AtomicService[AccountInput, Account, Account]
	invitations *core.AtomicService[InvitationInput, Invitation, InvitationInput]
	tokens      *core.OwnedAtomicService[TokenInput, TokenEntry, TokenInput]
	hasher      Hasher
	issuer      TokenIssuer
	decoder     TokenDecoder
	now         func() time.Time
}

func NewWorkflow(deps WorkflowDependencies) (*Workflow, error) {
	switch {
	case deps.Coordinator == nil:
		return nil, core.InternalError("auth: transaction coordinator is required")
	case deps.Accounts == nil || deps.Invitations == nil || deps.Tokens == nil:
		return nil, core.InternalError("auth: account, invitation and token providers are required")
	case deps.Hasher == nil:
		return nil, core.InternalError("auth: password hasher is required")
	case deps.Issuer == nil:
		return nil, core.InternalError("auth: token issuer is required")
	case deps.Config.RefreshTTL <= 0:
		return nil, core.InternalError("auth: refresh ttl must be positive")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	decoder := deps.Decoder
	if decoder == nil {
		decoder = deps.Issuer
	}
	transforms := Transforms{
		Hasher:     deps.Hasher,
		MaxRoles:   deps.Config.MaxRoles,
		RefreshTTL: deps.Config.RefreshTTL,
		Now:        now,
	}
	accountTransforms := transforms.Accounts()

	return &Workflow{
		runner: core.NewRunner(deps.Coordinator, deps.Observer),
		accounts: core.NewAtomicService[AccountInput, Account, Account](
			deps.Accounts,
			core.TransformFuncs[AccountInput, Account, Account]{
				Create: accountTransforms.Create,
				Update: func(id string, account Account) (Account, error) {
					account.ID = strings.TrimSpace(id)
					account.UpdatedAt = now().UTC()
					return account, nil
				},
			},
		),
		invitations: core.NewAtomicService[InvitationInput, Invitation, InvitationInput](deps.Invitations, transforms.Invitations()),
		tokens:      core.NewOwnedAtomicService[TokenInput, TokenEntry, TokenInput](deps.Tokens, transforms.Tokens()),
		hasher:      deps.Hasher,
		issuer:      deps.Issuer,
		decoder:     decoder,
		now:         now,
	}, nil
}

// SignUp redeems an invitation for a new account and signs it in.
func (w *Workflow) SignUp(ctx context.Context, req SignUpRequest) (TokenPair, error) {
	// A blank code answers like an unknown one.
	if strings.TrimSpace(req.InvitationCode) == "" {
		return TokenPair{}, core.UnauthorizedError("auth: invitation code is not valid")
	}
	fields := map[string]any{"account_id": req.ID}
	return core.RunInTransaction(ctx, w.runner, "auth.sign_up", fields, func(ctx context.Context, txn core.Transaction) (TokenPair, error) {
		_, err := w.accounts.ReadByID(ctx, txn, req.ID)
		switch {
		case err == nil:
			return TokenPair{}, core.ConflictError("auth: account already exists")
		case !core.IsNotFound(err):
			return TokenPair{}, err
		}

		invitation, err := w.invitations.ReadByID(ctx, txn, req.InvitationCode)
		if err != nil {
			if core.IsNotFound(err) {
				return TokenPair{}, core.UnauthorizedError("auth: invitation code is not valid")
			}
			return TokenPair{}, err
		}

		account, err := w.accounts.Create(ctx, txn, AccountInput{
			ID:          req.ID,
			DisplayName: req.DisplayName,
			Password:    req.Password,
			Roles:       invitation.Roles,
		})
		if err != nil {
			return TokenPair{}, err
		}

		pair, err := w.issue(ctx, txn, account)
		if err != nil {
			return TokenPair{}, err
		}
		if err := w.invitations.Delete(ctx, txn, invitation.ID); err != nil {
			return TokenPair{}, err
		}
		return pair, nil
	})
}

func (w *Workflow) SignIn(ctx context.Context, req SignInRequest) (TokenPair, error) {
	fields := map[string]any{"account_id": req.ID}
	return core.RunInTransaction(ctx, w.runner, "auth.sign_in", fields, func(ctx context.Context, txn core.Transaction) (TokenPair, error) {
		account, err := w.accounts.ReadByID(ctx, txn, req.ID)
		if err != nil {
			return TokenPair{}, err
		}
		if !w.hasher.Verify(req.Password, account.PasswordHash) {
			return TokenPair{}, core.UnauthorizedError("auth: credentials do not match")
		}
		return w.issue(ctx, txn, account)
	})
}

// ChangePassword replaces the caller's digest, revokes the caller's
// outstanding refresh tokens and issues a fresh pair.
func (w *Workflow) ChangePassword(ctx context.Context, req ChangePasswordRequest) (TokenPair, error) {
	if req.NewPassword == req.OldPassword {
		return TokenPair{}, core.BadRequestError("auth: new password must differ from the old password")
	}
	if strings.TrimSpace(req.CallerID) == "" {
		return TokenPair{}, core.UnauthorizedError("auth: caller identity is required")
	}
	fields := map[string]any{"account_id": req.CallerID}
	return core.RunInTransaction(ctx, w.runner, "auth.change_password", fields, func(ctx context.Context, txn core.Transaction) (TokenPair, error) {
		account, err := w.accounts.ReadByID(ctx, txn, req.CallerID)
		if err != nil {
			return TokenPair{}, err
		}
		if !w.hasher.Verify(req.OldPassword, account.PasswordHash) {
			return TokenPair{}, core.UnauthorizedError("auth: credentials do not match")
		}
		digest, err := w.hasher.Hash(req.NewPassword)
		if err != nil {
			return TokenPair{}, hashFailure(err, "auth: new password was rejected")
		}
		account.PasswordHash = digest
		if err := w.accounts.Update(ctx, txn, account.ID, account); err != nil {
			return TokenPair{}, err
		}

		outstanding, err := w.tokens.ReadAll(ctx, txn, account.ID)
		if err != nil {
			return TokenPair{}, err
		}
		for _, entry := range outstanding {
			if err := w.tokens.Delete(ctx, txn, account.ID, entry.ID); err != nil {
				return TokenPair{}, err
			}
		}
		return w.issue(ctx, txn, account)
	})
}

// Refresh rotates a refresh token. The backing record is replaced, so
// presenting the same token again fails with NotFound.
func (w *Workflow) Refresh(ctx context.Context, req RefreshRequest) (TokenPair, error) {
	decoded, err := w.decodeRefresh(ctx, req.RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	fields := map[string]any{"account_id": decoded.Subject}
	pair, err := core.RunInTransaction(ctx, w.runner, "auth.refresh", fields, func(ctx context.Context, txn core.Transaction) (TokenPair, error) {
		record, err := w.tokens.ReadByID(ctx, txn, decoded.Subject, decoded.ID)
		if err != nil {
			return TokenPair{}, err
		}
		if record.Expired(w.now()) {
			return TokenPair{}, core.UnauthorizedError("auth: refresh token has expired")
		}
		account, err := w.accounts.ReadByID(ctx, txn, decoded.Subject)
		if err != nil {
			return TokenPair{}, err
		}
		if err := w.tokens.Delete(ctx, txn, record.OwnerID, record.ID); err != nil {
			return TokenPair{}, err
		}
		return w.issue(ctx, txn, account)
	})
	if err != nil {
		return TokenPair{}, err
	}
	w.invalidate(ctx, req.RefreshToken)
	return pair, nil
}

// SignOut revokes the record behind a refresh token.
func (w *Workflow) SignOut(ctx context.Context, req RefreshRequest) error {
	decoded, err := w.decodeRefresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	fields := map[string]any{"account_id": decoded.Subject}
	_, err = core.RunInTransaction(ctx, w.runner, "auth.sign_out", fields, func(ctx context.Context, txn core.Transaction) (struct{}, error) {
		return struct{}{}, w.tokens.Delete(ctx, txn, decoded.Subject, decoded.ID)
	})
	if err != nil {
		return err
	}
	w.invalidate(ctx, req.RefreshToken)
	return nil
}

// Authenticate decodes an access token into the caller's claims.
func (w *Workflow) Authenticate(ctx context.Context, accessToken string) (core.ClaimSet, error) {
	decoded, err := w.decoder.Decode(ctx, accessToken)
	if err != nil {
		return core.ClaimSet{}, err
	}
	if decoded.Type != TokenTypeAccess {
		return core.ClaimSet{}, core.UnauthorizedError("auth: access token is required")
	}
	return decoded.ClaimSet(), nil
}

func (w *Workflow) issue(ctx context.Context, txn core.Transaction, account Account) (TokenPair, error) {
	record, err := w.tokens.Create(ctx, txn, account.ID, TokenInput{})
	if err != nil {
		return TokenPair{}, err
	}
	return w.issuer.Issue(ctx, TokenRequest{
		Subject:          account.ID,
		DisplayName:      account.DisplayName,
		Claims:           account.Claims(),
		RefreshID:        record.ID,
		RefreshExpiresAt: record.ExpiresAt,
	})
}

func (w *Workflow) decodeRefresh(ctx context.Context, token string) (DecodedToken, error) {
	decoded, err := w.decoder.Decode(ctx, token)
	if err != nil {
		return DecodedToken{}, err
	}
	if decoded.Type != TokenTypeRefresh || strings.TrimSpace(decoded.ID) == "" {
		return DecodedToken{}, core.UnauthorizedError("auth: refresh token is required")
	}
	return decoded, nil
}

func (w *Workflow) invalidate(ctx context.Context, token string) {
	invalidator, ok := w.decoder.(interface {
		Invalidate(ctx context.Context, token string) error
	})
	if !ok {
		return
	}
	if err := invalidator.Invalidate(ctx, token); err != nil {
		w.runner.Observer.Warn(ctx, "token cache invalidation failed", map[string]any{"error": err.Error()})
	}
}
