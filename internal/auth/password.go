package auth

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input. Longer passwords are
// cut here explicitly so hashing never fails with ErrPasswordTooLong and
// verification agrees with hashing.
const maxPasswordBytes = 72

// Scheme verifies passwords against one hash format.
type Scheme interface {
	// Matches reports whether hash is in this scheme's format.
	Matches(hash string) bool
	// Verify reports whether password produces hash.
	Verify(password []byte, hash string) bool
}

// BcryptScheme handles modular-crypt bcrypt hashes ($2a$, $2b$, $2y$).
// Hashes written by the previous hashing library use $2b$ and verify here.
type BcryptScheme struct{}

func (BcryptScheme) Matches(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

func (BcryptScheme) Verify(password []byte, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), password) == nil
}

// Hasher hashes new credentials with bcrypt and verifies stored ones
// against an ordered list of schemes.
type Hasher struct {
	cost    int
	schemes []Scheme

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher returns a Hasher using the given bcrypt cost. Out-of-range
// costs fall back to bcrypt.DefaultCost. Extra schemes are tried after
// bcrypt, in order.
func NewHasher(cost int, extra ...Scheme) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	schemes := make([]Scheme, 0, len(extra)+1)
	schemes = append(schemes, BcryptScheme{})
	schemes = append(schemes, extra...)
	return &Hasher{cost: cost, schemes: schemes}
}

// Hash returns a salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. It returns false for
// empty input and for hashes no scheme recognises.
func (h *Hasher) Verify(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	for _, scheme := range h.schemes {
		if scheme.Matches(hash) {
			return scheme.Verify(truncatePassword(password), hash)
		}
	}
	return false
}

// VerifyDummy spends the same work as a real verification and always
// fails. Login calls it when no account matched so response timing does
// not reveal whether the identifier exists.
func (h *Hasher) VerifyDummy(password string) bool {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("focusboard-dummy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, truncatePassword(password))
	return false
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
