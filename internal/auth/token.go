package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every token verification failure. Callers must
// not distinguish between the wrapped causes in client responses.
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig is built once at startup from the process configuration.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// Subject is the user ID carried in the "sub" claim. It is written as a
// decimal string and read from either a string or an integer literal;
// older tokens carried a bare number. Signs and leading zeros are refused.
type Subject int64

func (s Subject) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(s), 10))
}

func (s *Subject) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty subject")
	}

	literal := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &literal); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
	} else if data[0] != '-' && (data[0] < '0' || data[0] > '9') {
		return fmt.Errorf("subject: unsupported type %q", literal)
	}

	id, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if strconv.FormatInt(id, 10) != literal {
		return fmt.Errorf("subject: %q is not a canonical decimal", literal)
	}
	*s = Subject(id)
	return nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	Subject  Subject `json:"sub"`
	Username string  `json:"username,omitempty"`
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Issue signs a token for the user. A non-positive ttl uses the
// configured default.
func (s *TokenService) Issue(userID int64, username string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
		Subject:  Subject(userID),
		Username: username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Verify checks the signature, structure and expiry of tokenString.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	var claims accessClaims
	token, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID:   int64(claims.Subject),
		Username: claims.Username,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
