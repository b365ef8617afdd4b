// Package walletcore ties the codec, coin registry, transaction
// builder, and store packages together into the account lifecycle and
// payment flows of spec §4.4: creation/import under a process-wide
// lock, UTXO querying, sends, consolidation, and automatic payments.
package walletcore

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"

	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/klingon-exchange/custodial-wallet/pkg/helpers"
)

const (
	// privKeyLen is the size of the raw secp256k1 scalar stored
	// encrypted on Account.EncryptedKey.
	privKeyLen = 32
	// ivLen is the AES block size, and the size of Account.IV.
	ivLen = aes.BlockSize
)

// encryptionKey holds the process-wide AES-128 key every Account's
// private key is encrypted under (spec §3, §6's ENCRYPTION_KEY).
type encryptionKey [16]byte

// ParseEncryptionKey decodes the hex-encoded ENCRYPTION_KEY
// configuration value into the 16-byte AES-128 key.
func ParseEncryptionKey(hexKey string) (encryptionKey, error) {
	var key encryptionKey
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return key, walleterr.Wrap(walleterr.InvalidEncoding, err, "encryption_key is not valid hex")
	}
	if len(raw) != len(key) {
		return key, walleterr.Newf(walleterr.InvalidEncoding, "encryption_key must be %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// encryptPrivKey AES-128-CBC encrypts a 32-byte private key under a
// freshly generated IV, the form stored as Account.{iv,encrypted_key}.
func encryptPrivKey(key encryptionKey, privKey []byte) (iv, ciphertext []byte, err error) {
	if len(privKey) != privKeyLen {
		return nil, nil, walleterr.Newf(walleterr.InvalidEncoding, "private key must be %d bytes, got %d", privKeyLen, len(privKey))
	}
	iv, err = helpers.GenerateSecureRandom(ivLen)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, nil, err
	}
	ciphertext = make([]byte, privKeyLen)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, privKey)
	return iv, ciphertext, nil
}

// decryptPrivKey reverses encryptPrivKey.
func decryptPrivKey(key encryptionKey, iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != ivLen {
		return nil, walleterr.Newf(walleterr.InvalidEncoding, "iv must be %d bytes, got %d", ivLen, len(iv))
	}
	if len(ciphertext) != privKeyLen {
		return nil, walleterr.Newf(walleterr.InvalidEncoding, "encrypted key must be %d bytes, got %d", privKeyLen, len(ciphertext))
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, privKeyLen)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
