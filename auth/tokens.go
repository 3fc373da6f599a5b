package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-resources/core"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenRequest describes one access/refresh pair. RefreshID is the id of
// the refresh record backing the refresh token.
type TokenRequest struct {
	Subject          string
	DisplayName      string
	Claims           []core.Claim
	RefreshID        string
	RefreshExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// DecodedToken is the verified content of a token. ID is the refresh
// record id for refresh tokens.
type DecodedToken struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	DisplayName string       `json:"display_name"`
	Type        TokenType    `json:"type"`
	Claims      []core.Claim `json:"claims"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func (d DecodedToken) ClaimSet() core.ClaimSet {
	return core.NewClaimSet(d.Claims...)
}

type TokenDecoder interface {
	Decode(ctx context.Context, token string) (DecodedToken, error)
}

type TokenIssuer interface {
	TokenDecoder
	Issue(ctx context.Context, req TokenRequest) (TokenPair, error)
}

type tokenClaims struct {
	Name   string       `json:"name,omitempty"`
	Type   TokenType    `json:"typ"`
	Claims []core.Claim `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 tokens with a shared secret.
type JWTIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

type JWTOption func(*JWTIssuer)

func WithJWTClock(now func() time.Time) JWTOption {
	return func(i *JWTIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewJWTIssuer(secret string, cfg core.AuthConfig, opts ...JWTOption) (*JWTIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: jwt signing secret is required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("auth: access token ttl must be positive")
	}
	issuer := &JWTIssuer{
		secret:    []byte(secret),
		issuer:    strings.TrimSpace(cfg.Issuer),
		accessTTL: cfg.AccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(issuer)
	}
	return issuer, nil
}

func (i *JWTIssuer) Issue(ctx context.Context, req TokenRequest) (TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(req.Subject) == "" {
		return TokenPair{}, core.BadRequestError("auth: token subject is required")
	}
	if strings.TrimSpace(req.RefreshID) == "" || req.RefreshExpiresAt.IsZero() {
		return TokenPair{}, core.InternalError("auth: refresh record is required to issue tokens")
	}

	now := i.now().UTC()
	accessExpiresAt := now.Add(i.accessTTL)
	access, err := i.sign(tokenClaims{
		Name:             req.DisplayName,
		Type:             TokenTypeAccess,
		Claims:           req.Claims,
		RegisteredClaims: i.registered(req.Subject, newTokenID(now), now, accessExpiresAt),
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(tokenClaims{
		Name:             req.DisplayName,
		Type:             TokenTypeRefresh,
		RegisteredClaims: i.registered(req.Subject, req.RefreshID, now, req.RefreshExpiresAt),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: req.RefreshExpiresAt.UTC(),
	}, nil
}

func (i *JWTIssuer) Decode(ctx context.Context, token string) (DecodedToken, error) {
	if err := ctx.Err(); err != nil {
		return DecodedToken{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return DecodedToken{}, core.UnauthorizedError("auth: token is required")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		options = append(options, jwt.WithIssuer(i.issuer))
	}
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, options...)
	if err != nil || !parsed.Valid {
		return DecodedToken{}, core.WrapError(unwrapNil(err), core.KindUnauthorized, "auth: token is invalid")
	}

	decoded := DecodedToken{
		ID:          claims.ID,
		Subject:     claims.Subject,
		DisplayName: claims.Name,
		Type:        claims.Type,
		Claims:      append([]core.Claim(nil), claims.Claims...),
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	if strings.TrimSpace(decoded.Subject) == "" {
		return DecodedToken{}, core.UnauthorizedError("auth: token subject is missing")
	}
	return decoded, nil
}

func (i *JWTIssuer) sign(claims tokenClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", core.WrapError(err, core.KindInternal, "auth: sign token")
	}
	return signed, nil
}

func (i *JWTIssuer) registered(subject, id string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func unwrapNil(err error) error {
	if err == nil {
		return errors.New("token rejected")
	}
	return err
}

var _ TokenIssuer = (*JWTIssuer)(nil)
