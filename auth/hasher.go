package auth

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-resources/core"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordRejected marks a plaintext the hasher refuses to digest, such
// as one longer than bcrypt's 72 byte limit.
var ErrPasswordRejected = errors.New("auth: password rejected")

// Hasher turns plaintext passwords into one-way digests.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// BcryptHasher hashes with bcrypt. A zero Cost uses bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password is empty", ErrPasswordRejected)
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", ErrPasswordRejected, err)
	}
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(digest), nil
}

func (h BcryptHasher) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// hashFailure classifies a Hash error: a rejected plaintext is the caller's
// input, anything else is a fault of the hasher.
func hashFailure(err error, message string) error {
	if errors.Is(err, ErrPasswordRejected) {
		return core.WrapError(err, core.KindValidation, message)
	}
	return core.WrapError(err, core.KindInternal, message)
}

var _ Hasher = BcryptHasher{}
