package himitsu

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// aeadKeyLen is the required AES-256-GCM key length in bytes.
	aeadKeyLen = 32
	// aeadNonceLen is the GCM standard nonce length in bytes.
	aeadNonceLen = 12
)

// DecodeKeyHex decodes a 64-character hex string into a 32-byte AES-256-GCM
// key, failing with a CryptographyError if the decoded length is wrong.
func DecodeKeyHex(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("invalid key encoding: %v", err)}
	}
	if len(key) != aeadKeyLen {
		return nil, &CryptographyError{Message: fmt.Sprintf("key must be %d bytes long, got %d", aeadKeyLen, len(key))}
	}
	return key, nil
}

// sealEnvelope encrypts plaintext with AES-256-GCM under key, using a fresh
// random 12-byte nonce and empty associated data, and returns
// nonce || ciphertext || tag.
func sealEnvelope(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("invalid key: %v", err)}
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, aeadNonceLen)
	if err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("failed to construct AEAD: %v", err)}
	}

	nonce := make([]byte, aeadNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("failed to generate nonce: %v", err)}
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// openEnvelope splits envelope into its 12-byte nonce and
// ciphertext||tag, then decrypts with AES-256-GCM under key and empty
// associated data. Any authentication failure, or an envelope shorter than
// the nonce, fails with a CryptographyError.
func openEnvelope(key, envelope []byte) ([]byte, error) {
	if len(envelope) < aeadNonceLen {
		return nil, &CryptographyError{Message: "Invalid configuration"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("invalid key: %v", err)}
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, aeadNonceLen)
	if err != nil {
		return nil, &CryptographyError{Message: fmt.Sprintf("failed to construct AEAD: %v", err)}
	}

	nonce := envelope[:aeadNonceLen]
	sealed := envelope[aeadNonceLen:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &CryptographyError{Message: "Could not decrypt config"}
	}

	return plaintext, nil
}
