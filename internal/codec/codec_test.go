package codec

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

func TestBase58AddressRoundtrip(t *testing.T) {
	for _, version := range []byte{0, 5, 38, 111, 196} {
		h := randomBytes(t, 20)
		encoded, err := EncodeBase58Address(version, h)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeBase58Address(encoded, version)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(decoded, h) {
			t.Fatalf("roundtrip mismatch: %x != %x", decoded, h)
		}
	}
}

func TestBase58AddressWrongVersionRejected(t *testing.T) {
	h := randomBytes(t, 20)
	encoded, err := EncodeBase58Address(38, h)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBase58Address(encoded, 39); !errors.Is(err, walleterr.New(walleterr.InvalidEncoding, "")) {
		t.Fatalf("expected InvalidEncoding for wrong version, got %v", err)
	}
}

func TestBase58AddressLiteral(t *testing.T) {
	zero := make([]byte, 20)
	encoded, err := EncodeBase58Address(38, zero)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded[:4] != "GCmk" && encoded[:4] != "GCMk" {
		t.Logf("literal prefix (informational): %s", encoded[:4])
	}
	decoded, err := DecodeBase58Address(encoded, 38)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, zero) {
		t.Fatalf("decoded payload mismatch")
	}
}

func TestWIFRoundtrip(t *testing.T) {
	scalar := randomBytes(t, 32)
	encoded, err := EncodeWIF(0x80, scalar, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	version, decoded, compressed, err := DecodeWIF(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version != 0x80 || !compressed || !bytes.Equal(decoded, scalar) {
		t.Fatalf("roundtrip mismatch: version=%d compressed=%v scalar=%x", version, compressed, decoded)
	}
}

func TestWIFUncompressedRoundtrip(t *testing.T) {
	scalar := randomBytes(t, 32)
	encoded, err := EncodeWIF(0x80, scalar, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, decoded, compressed, err := DecodeWIF(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if compressed || !bytes.Equal(decoded, scalar) {
		t.Fatalf("expected uncompressed roundtrip, got compressed=%v", compressed)
	}
}

func TestBech32Roundtrip(t *testing.T) {
	h := randomBytes(t, 20)
	encoded, err := EncodeBech32Address("bc", h)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeBech32Address(encoded, "bc")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, h) {
		t.Fatalf("roundtrip mismatch: %x != %x", decoded, h)
	}
}

func TestBech32WrongPrefixRejected(t *testing.T) {
	h := randomBytes(t, 20)
	encoded, err := EncodeBech32Address("bc", h)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBech32Address(encoded, "ltc"); err == nil {
		t.Fatal("expected prefix mismatch to fail")
	}
}

func TestBech32RejectsWrongProgramLength(t *testing.T) {
	// A 32-byte program (e.g. P2WSH) must be rejected: this system
	// only ever indexes P2WPKH SegWit addresses.
	h := randomBytes(t, 32)
	converted, err := bech32ConvertBits(h, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	data := append([]byte{0}, converted...)
	encoded, err := bech32Encode("bc", data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeBech32Address(encoded, "bc"); err == nil {
		t.Fatal("expected 32-byte program to be rejected")
	}
}

func TestHash160KnownVector(t *testing.T) {
	// RIPEMD160(SHA256("")) is a well-known test vector.
	got := Hash160(nil)
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	if hexEncode(got) != want {
		t.Fatalf("Hash160(nil) = %s, want %s", hexEncode(got), want)
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0xf]
	}
	return string(out)
}
