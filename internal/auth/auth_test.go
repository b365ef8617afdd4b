package auth

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestMatchesRoundTrip(t *testing.T) {
	token := make([]byte, RawTokenLen)
	for i := range token {
		token[i] = byte(i)
	}
	hash := HashToken(token)

	if !Matches(token, hash) {
		t.Fatal("expected the original token to match its own hash")
	}
	other := append([]byte(nil), token...)
	other[0] ^= 0xff
	if Matches(other, hash) {
		t.Fatal("expected a different token not to match")
	}
}

func TestDecodeBearerHeaderHappyPath(t *testing.T) {
	token := make([]byte, RawTokenLen)
	for i := range token {
		token[i] = 'T'
	}
	header := "Bearer " + base64.StdEncoding.EncodeToString(token)

	got, err := DecodeBearerHeader(header)
	if err != nil {
		t.Fatalf("DecodeBearerHeader: %v", err)
	}
	if string(got) != string(token) {
		t.Fatal("decoded token does not match the original")
	}
}

func TestDecodeBearerHeaderRejectsWrongLength(t *testing.T) {
	header := "Bearer " + base64.StdEncoding.EncodeToString([]byte("too-short"))
	if _, err := DecodeBearerHeader(header); err == nil {
		t.Fatal("expected AuthenticationError for a wrong-length token")
	}
}

func TestDecodeBearerHeaderRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Basic dXNlcjpwYXNz",
		"Bearer",
		"Bearer not-valid-base64!!!",
	}
	for _, header := range cases {
		if _, err := DecodeBearerHeader(header); err == nil {
			t.Fatalf("expected an error for header %q", header)
		}
	}
}

func TestDecodeBearerHeaderRejectsTruncatedBase64Token(t *testing.T) {
	header := "Bearer " + strings.TrimRight(base64.StdEncoding.EncodeToString(make([]byte, RawTokenLen-1)), "=")
	if _, err := DecodeBearerHeader(header); err == nil {
		t.Fatal("expected AuthenticationError for a truncated token")
	}
}
