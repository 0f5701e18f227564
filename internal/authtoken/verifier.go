package authtoken

import (
	"time"
)

// CallerIdentity is the minimal identity the coordinator needs from a
// verified bearer token. The customer directory that could enrich this
// further (profile lookups, KYC tier) is an out-of-scope collaborator per
// spec §1 — the coordinator never dereferences it.
type CallerIdentity struct {
	Subject string
	Admin   bool
}

// Verifier authenticates an inbound bearer token. Verify does not
// distinguish "malformed" from "expired" from "wrong signature": every
// failure collapses to ErrInvalidToken, matching the teacher's
// middleware.JWTAuth, which never leaks that distinction to callers.
type Verifier interface {
	Verify(token string) (CallerIdentity, error)
}

// SymmetricVerifier verifies HS256 tokens minted with a shared secret,
// either by an upstream identity provider (client-facing calls) or by the
// coordinator itself when minting the administrative token it presents to
// participants.
type SymmetricVerifier struct {
	Secret []byte
}

// NewSymmetricVerifier builds a Verifier around a shared secret.
func NewSymmetricVerifier(secret string) SymmetricVerifier {
	return SymmetricVerifier{Secret: []byte(secret)}
}

// Verify implements Verifier.
func (v SymmetricVerifier) Verify(token string) (CallerIdentity, error) {
	claims, err := ParseAndVerifyHS256(token, v.Secret)
	if err != nil {
		return CallerIdentity{}, err
	}
	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return CallerIdentity{}, ErrInvalidToken
		}
	}
	sub, _ := claims["sub"].(string)
	admin, _ := claims["admin"].(bool)
	if sub == "" {
		return CallerIdentity{}, ErrInvalidToken
	}
	return CallerIdentity{Subject: sub, Admin: admin}, nil
}

// MintServiceToken produces the administrative token the coordinator
// attaches to every outbound /2pc/* call, per spec §6.1 ("service-to-service
// calls carry a coordinator-minted administrative token").
func MintServiceToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := map[string]any{
		"sub":   "coordinator",
		"admin": true,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return SignHS256(claims, []byte(secret))
}
