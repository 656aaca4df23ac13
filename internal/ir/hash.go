package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainState = "bpsync/state/v1"
	DomainEvent = "bpsync/event/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data unambiguous.
func hashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Digest returns the hex SHA-256 of canonical bytes under a domain.
func Digest(domain string, canonical []byte) string {
	sum := hashWithDomain(domain, canonical)
	return hex.EncodeToString(sum[:])
}

// ShortDigest folds the domain-separated SHA-256 of canonical bytes into 64
// bits. Distinct inputs may collide; callers that dedup on it accept that.
func ShortDigest(domain string, canonical []byte) uint64 {
	sum := hashWithDomain(domain, canonical)
	return binary.BigEndian.Uint64(sum[:8])
}
