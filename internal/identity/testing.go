package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
)

// TestPrincipal is a test helper returning a deterministic self-authenticating
// principal for the given name.
func TestPrincipal(name string) Principal {
	seed := sha256.Sum256([]byte(name))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	p, err := PrincipalFromPublicKey(pub)
	if err != nil {
		panic(err)
	}
	return p
}
