// Package auth implements the bearer-token authentication scheme of
// spec §6: a raw 64-byte token is double-SHA256-hashed and compared
// against WalletManager.TokenHash in constant time.
package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/klingon-exchange/custodial-wallet/pkg/helpers"
)

// RawTokenLen is the required length of the raw bearer token before
// base64 encoding and hashing.
const RawTokenLen = 64

// HashToken applies SHA-256 twice to a raw token, the form stored as
// WalletManager.TokenHash and compared against on every request.
func HashToken(raw []byte) [32]byte {
	first := sha256.Sum256(raw)
	return sha256.Sum256(first[:])
}

// Matches reports whether a raw token hashes to the expected stored
// hash, compared in constant time to avoid a timing oracle.
func Matches(raw []byte, expected [32]byte) bool {
	got := HashToken(raw)
	return helpers.ConstantTimeCompare(got[:], expected[:])
}

// DecodeBearerHeader extracts and validates the raw token from an
// `Authorization: Bearer <base64>` header value. Any malformed header
// or wrong-length token is AuthenticationError, matching spec §6's
// "any malformed header, wrong length, unknown token ⇒ 401".
func DecodeBearerHeader(header string) ([]byte, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return nil, walleterr.New(walleterr.AuthenticationError, "missing or malformed Authorization header")
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return nil, walleterr.Wrap(walleterr.AuthenticationError, err, "bearer token is not valid base64")
	}
	if len(raw) != RawTokenLen {
		return nil, walleterr.Newf(walleterr.AuthenticationError, "bearer token must be %d bytes, got %d", RawTokenLen, len(raw))
	}
	return raw, nil
}
