// Package cryptox implements at-rest protection for secure-store values:
// argon2id key derivation from machine-local secret material and AES-GCM
// seal/open of individual values.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"os"

	"github.com/sciqlabs/tutorlink/internal/common"
	"golang.org/x/crypto/argon2"
)

// keyFileSize is the raw secret material kept on disk: 16 bytes of secret
// plus 16 bytes of salt for the argon2id stretch.
const keyFileSize = 32

var ErrBadKeyFile = errors.New("bad key file")

// DeriveKey stretches (secret, salt) into a 32-byte AES-256 key using
// argon2id with the same cost parameters across the project.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// LoadOrCreateKey reads machine-local secret material from path, creating it
// with fresh random bytes on first use (mode 0600), and returns the derived
// sealing key.
func LoadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		raw = common.GenerateRandByteArray(keyFileSize)
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if len(raw) != keyFileSize {
		return nil, ErrBadKeyFile
	}
	return DeriveKey(raw[:16], raw[16:]), nil
}

// Seal encrypts plaintext with AES-GCM under key. A fresh random nonce is
// generated per call and returned separately.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Open decrypts ciphertext produced by Seal with the same key and nonce.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
