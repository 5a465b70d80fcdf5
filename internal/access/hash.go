package access

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// AddrHasher maps client network addresses to a keyed blake2b digest so the
// raw address never reaches storage or logs.
type AddrHasher struct {
	key []byte
}

func NewAddrHasher(salt string) *AddrHasher {
	sum := sha256.Sum256([]byte(salt))
	return &AddrHasher{key: sum[:]}
}

func (h *AddrHasher) Hash(addr string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// key is always 32 bytes, well under the 64 byte limit
		panic(err)
	}
	mac.Write([]byte(addr))
	return hex.EncodeToString(mac.Sum(nil))
}
