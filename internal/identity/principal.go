package identity

import (
	"crypto/ed25519"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// Anonymous is the principal of an unauthenticated caller. It resolves to
	// the guest role and is rejected by every mutating operation.
	Anonymous Principal = "2vxsx-fae"

	// System is the counterparty recorded on ledger entries that originate
	// outside any wallet, such as approved deposits.
	System Principal = "aaaaa-aa"

	maxPrincipalBytes = 29
	selfAuthSuffix    = 0x02
)

var (
	// ErrInvalidPrincipal reports text that is not a canonical principal.
	ErrInvalidPrincipal = errors.New("invalid principal")

	principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// Principal is the textual form of a caller identity: base32 of a CRC32
// checksum followed by the raw identity bytes, grouped in runs of five.
type Principal string

// String implements fmt.Stringer.
func (p Principal) String() string { return string(p) }

// IsAnonymous reports whether the principal is the anonymous caller. The
// zero value is treated as anonymous too.
func (p Principal) IsAnonymous() bool {
	return p == "" || p == Anonymous
}

// PrincipalFromBytes encodes raw identity bytes into their textual form.
func PrincipalFromBytes(raw []byte) (Principal, error) {
	if len(raw) > maxPrincipalBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidPrincipal, len(raw), maxPrincipalBytes)
	}
	buf := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(raw))
	copy(buf[4:], raw)

	text := strings.ToLower(principalEncoding.EncodeToString(buf))
	var b strings.Builder
	for i := 0; i < len(text); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 5
		if end > len(text) {
			end = len(text)
		}
		b.WriteString(text[i:end])
	}
	return Principal(b.String()), nil
}

// PrincipalFromPublicKey derives the self-authenticating principal of an
// ed25519 key: sha3-224 of the key followed by a one byte type tag.
func PrincipalFromPublicKey(pub ed25519.PublicKey) (Principal, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: public key has %d bytes", ErrInvalidPrincipal, len(pub))
	}
	digest := sha3.Sum224(pub)
	raw := append(digest[:], selfAuthSuffix)
	return PrincipalFromBytes(raw)
}

// ParsePrincipal validates the checksum and canonical grouping of text.
func ParsePrincipal(text string) (Principal, error) {
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}
	if len(decoded) < 4 {
		return "", fmt.Errorf("%w: too short", ErrInvalidPrincipal)
	}
	raw := decoded[4:]
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(raw) {
		return "", fmt.Errorf("%w: checksum mismatch", ErrInvalidPrincipal)
	}
	canonical, err := PrincipalFromBytes(raw)
	if err != nil {
		return "", err
	}
	if string(canonical) != text {
		return "", fmt.Errorf("%w: not in canonical form", ErrInvalidPrincipal)
	}
	return canonical, nil
}
