package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rig-store/rig_ledger/internal/identity"
)

func newKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}

func TestVerifierAcceptsSelfSignedToken(t *testing.T) {
	key := newKey(t)
	token, err := SignToken(key, time.Now(), 5*time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := NewVerifier(15 * time.Minute).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	want, _ := identity.PrincipalFromPublicKey(key.Public().(ed25519.PublicKey))
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	token, _ := SignToken(newKey(t), time.Now().Add(-time.Hour), time.Minute)
	if _, err := NewVerifier(15 * time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRejectsLongLivedToken(t *testing.T) {
	token, _ := SignToken(newKey(t), time.Now(), 24*time.Hour)
	if _, err := NewVerifier(15 * time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRejectsForeignSubject(t *testing.T) {
	key := newKey(t)
	pub := key.Public().(ed25519.PublicKey)
	now := time.Now()
	claims := Claims{
		PublicKey: base64.RawURLEncoding.EncodeToString(pub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.TestPrincipal("someone-else").String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier(15 * time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRejectsKeySwap(t *testing.T) {
	signer := newKey(t)
	other := newKey(t)
	otherPub := other.Public().(ed25519.PublicKey)
	principal, _ := identity.PrincipalFromPublicKey(otherPub)
	now := time.Now()
	claims := Claims{
		PublicKey: base64.RawURLEncoding.EncodeToString(otherPub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signer)
	if _, err := NewVerifier(15 * time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure, got %v", err)
	}
}

func TestVerifierRejectsHMAC(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "aaaaa-aa",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	if _, err := NewVerifier(15 * time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
