package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rig-store/rig_ledger/internal/identity"
)

// ErrInvalidToken is returned for any bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller's ed25519 public key alongside the registered
// claims. The subject must be the principal derived from that key.
type Claims struct {
	PublicKey string `json:"pk"`
	jwt.RegisteredClaims
}

// Verifier checks self-signed EdDSA tokens and resolves the caller principal.
type Verifier struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier builds a verifier that accepts tokens living at most maxAge.
func NewVerifier(maxAge time.Duration) *Verifier {
	return &Verifier{maxAge: maxAge, now: time.Now}
}

// Verify parses token, checks its signature against the embedded key and
// returns the principal it authenticates.
func (v *Verifier) Verify(token string) (identity.Principal, error) {
	claims := &Claims{}
	var pub ed25519.PublicKey
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		raw, err := base64.RawURLEncoding.DecodeString(claims.PublicKey)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			return nil, errors.New("malformed pk claim")
		}
		pub = ed25519.PublicKey(raw)
		return pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.IssuedAt == nil {
		return "", fmt.Errorf("%w: iat is required", ErrInvalidToken)
	}
	if v.maxAge > 0 && claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.maxAge {
		return "", fmt.Errorf("%w: lifetime exceeds %s", ErrInvalidToken, v.maxAge)
	}

	principal, err := identity.PrincipalFromPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != principal.String() {
		return "", fmt.Errorf("%w: subject does not match key", ErrInvalidToken)
	}
	return principal, nil
}

// SignToken issues a token for the principal owning key. Clients use the
// same shape; the server only verifies.
func SignToken(key ed25519.PrivateKey, issuedAt time.Time, ttl time.Duration) (string, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.New("unexpected public key type")
	}
	principal, err := identity.PrincipalFromPublicKey(pub)
	if err != nil {
		return "", err
	}
	claims := Claims{
		PublicKey: base64.RawURLEncoding.EncodeToString(pub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}
