package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTTL = 24 * time.Hour
	TokenType  = "Bearer"
)

// ErrInvalidToken covers bad signatures, malformed payloads and expiry.
// It matches domain.ErrUnauthorized under errors.Is.
var ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)

// SessionClaims is the verified payload of a bearer token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Subject identifies the user a token is minted for.
type Subject struct {
	ID      uuid.UUID
	Email   string
	Name    string
	IsAdmin bool
}

func SubjectOf(u domain.PublicUser) Subject {
	return Subject{ID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: u.IsAdmin}
}

type Token struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

// Issuer signs and verifies HS256 session tokens. It keeps no record of
// issued tokens, so rotating the secret invalidates every outstanding one.
type Issuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, defaultTTL time.Duration) *Issuer {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Issuer{
		secret:     append([]byte(nil), secret...),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) Issue(s Subject) (Token, error) {
	return i.IssueWithTTL(s, i.defaultTTL)
}

func (i *Issuer) IssueWithTTL(s Subject, ttl time.Duration) (Token, error) {
	now := i.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: s.Email,
		Name:  s.Name,
		Admin: s.IsAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		Token:     signed,
		ExpiresIn: int64(ttl / time.Second),
		TokenType: TokenType,
	}, nil
}

// Verify rejects tokens whose signature does not match, whose payload cannot
// be decoded, or whose expiry is not strictly after now. No leeway is applied.
func (i *Issuer) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>" value.
func ExtractBearer(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, TokenType+" ")
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}
