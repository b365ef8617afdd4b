// Package codec implements the address and private-key encodings used
// by every Bitcoin-derived UTXO chain this wallet supports: base58check
// addresses, base58check WIF private keys, and bech32 SegWit addresses.
package codec

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// payload sizes the encoders and decoders enforce.
const (
	addressPayloadLen = 20
	privkeyScalarLen  = 32
	wifCompressedByte = 0x01
)

// EncodeBase58Address encodes a 20-byte hash under the given version
// byte as `version(1) || payload(20)` base58check.
func EncodeBase58Address(version byte, payload []byte) (string, error) {
	if len(payload) != addressPayloadLen {
		return "", walleterr.Newf(walleterr.InvalidEncoding, "address payload must be %d bytes, got %d", addressPayloadLen, len(payload))
	}
	return base58.CheckEncode(payload, version), nil
}

// DecodeBase58Address decodes a base58check address, requiring the
// payload be exactly 20 bytes and the version byte match wantVersion.
func DecodeBase58Address(s string, wantVersion byte) ([]byte, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.InvalidEncoding, err, "base58check decode failed")
	}
	if len(payload) != addressPayloadLen {
		return nil, walleterr.Newf(walleterr.InvalidEncoding, "address payload must be %d bytes, got %d", addressPayloadLen, len(payload))
	}
	if version != wantVersion {
		return nil, walleterr.Newf(walleterr.InvalidEncoding, "address version %d does not match expected %d", version, wantVersion)
	}
	return payload, nil
}

// EncodeWIF encodes a 32-byte secp256k1 scalar as
// `version(1) || scalar(32) [|| 0x01]`, appending the compression
// marker only when compressed is true.
func EncodeWIF(version byte, scalar []byte, compressed bool) (string, error) {
	if len(scalar) != privkeyScalarLen {
		return "", walleterr.Newf(walleterr.InvalidEncoding, "private key scalar must be %d bytes, got %d", privkeyScalarLen, len(scalar))
	}
	payload := make([]byte, 0, privkeyScalarLen+1)
	payload = append(payload, scalar...)
	if compressed {
		payload = append(payload, wifCompressedByte)
	}
	return base58.CheckEncode(payload, version), nil
}

// DecodeWIF decodes a WIF string, returning the version byte, the
// 32-byte scalar, and whether the compressed-pubkey marker was set.
// It rejects a decoded payload (after the version byte) of any length
// other than 32 (uncompressed) or 33 (compressed), and rejects a
// 33-byte payload whose trailing byte is not exactly 0x01.
func DecodeWIF(s string) (version byte, scalar []byte, compressed bool, err error) {
	payload, ver, decErr := base58.CheckDecode(s)
	if decErr != nil {
		return 0, nil, false, walleterr.Wrap(walleterr.InvalidEncoding, decErr, "base58check decode failed")
	}
	switch len(payload) {
	case privkeyScalarLen:
		return ver, payload, false, nil
	case privkeyScalarLen + 1:
		if payload[privkeyScalarLen] != wifCompressedByte {
			return 0, nil, false, walleterr.Newf(walleterr.InvalidEncoding, "WIF trailing byte %#x is not 0x01", payload[privkeyScalarLen])
		}
		return ver, payload[:privkeyScalarLen], true, nil
	default:
		return 0, nil, false, walleterr.Newf(walleterr.InvalidEncoding, "WIF payload must be %d or %d bytes, got %d", privkeyScalarLen, privkeyScalarLen+1, len(payload))
	}
}

// ValidateVersion checks that v is representable as a single version
// byte, i.e. an integer in [0, 256). Go's byte type already enforces
// this at compile time for callers passing a byte literal; this helper
// exists for callers validating a version read from configuration as
// a wider integer type.
func ValidateVersion(v int) error {
	if v < 0 || v > 255 {
		return walleterr.Newf(walleterr.InvalidEncoding, "version byte %d out of range [0, 256)", v)
	}
	return nil
}
