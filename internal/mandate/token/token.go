// Package token signs and parses mandate tokens: compact three-segment
// signed strings carried in the X-Mandate-JWS header.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// Claims is the decoded mandate payload.
//
// ValidFrom and ValidUntil are ISO-8601 strings mirroring NotBefore and
// ExpiresAt so external consumers can read the window without our parser.
type Claims struct {
	MandateID      string   `json:"mandate_id"`
	UserID         string   `json:"user_id"`
	Provider       string   `json:"provider"`
	Scope          []string `json:"scope"`
	OrgRef         string   `json:"org_ref,omitempty"`
	ChildID        string   `json:"child_id,omitempty"`
	ProgramRef     string   `json:"program_ref,omitempty"`
	MaxAmountCents int64    `json:"max_amount_cents,omitempty"`
	ValidFrom      string   `json:"valid_from"`
	ValidUntil     string   `json:"valid_until"`
	TimePeriod     string   `json:"time_period"`
	CredentialType string   `json:"credential_type"`

	// Verified is set by the verifier on a payload that passed every check.
	// Never serialized into the token.
	Verified bool `json:"-"`

	jwt.RegisteredClaims
}

// Scopes returns the granted scope set.
func (c *Claims) Scopes() id.Scopes {
	return id.NewScopes(c.Scope)
}

// Window returns the parsed validity window.
func (c *Claims) Window() (from, until time.Time, err error) {
	from, err = time.Parse(time.RFC3339, c.ValidFrom)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidMandate, "malformed valid_from")
	}
	until, err = time.Parse(time.RFC3339, c.ValidUntil)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidMandate, "malformed valid_until")
	}
	return from, until, nil
}

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Signer creates and parses mandate tokens. Issuer and audience are fixed
// per deployment and enforced on every parse.
type Signer struct {
	key      []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
}

// NewSigner constructs a Signer. Fails with a config error when the signing
// secret is missing, the algorithm unknown, or issuer/audience unset — a
// process that cannot mint verifiable tokens should not start.
func NewSigner(secret []byte, alg, issuer, audience string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, dErrors.New(dErrors.CodeConfig, "mandate signing secret is not configured")
	}
	method, ok := signingMethods[alg]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfig, "unsupported signing algorithm %q", alg)
	}
	if issuer == "" || audience == "" {
		return nil, dErrors.New(dErrors.CodeConfig, "mandate issuer and audience are required")
	}
	return &Signer{key: secret, method: method, issuer: issuer, audience: audience}, nil
}

// Sign fills the registered claims from the payload's window and returns the
// compact signed form.
func (s *Signer) Sign(claims Claims) (string, error) {
	from, until, err := claims.Window()
	if err != nil {
		return "", err
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        claims.MandateID,
		Subject:   claims.UserID,
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		IssuedAt:  jwt.NewNumericDate(from),
		NotBefore: jwt.NewNumericDate(from),
		ExpiresAt: jwt.NewNumericDate(until),
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign mandate token")
	}
	return signed, nil
}

// Parse verifies signature, issuer, audience and the registered time claims
// against the supplied clock, then returns the decoded payload. Any
// structural or cryptographic failure comes back as an invalid-mandate error.
func (s *Signer) Parse(tokenString string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.New(dErrors.CodeInvalidMandate, "mandate has expired")
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, dErrors.New(dErrors.CodeInvalidMandate, "mandate is not yet valid")
		default:
			return nil, dErrors.New(dErrors.CodeInvalidMandate, "invalid mandate token")
		}
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidMandate, "invalid mandate token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidMandate, "invalid mandate claims")
	}
	return claims, nil
}
