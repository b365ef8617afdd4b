package codec

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Bitcoin-family hash160
)

// Hash160 computes RIPEMD160(SHA256(data)), the hash used for both
// Account.pubkeyhash and every destination pubkeyhash in this system.
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}
