// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Values prefixed ENC: are AES-256-GCM encrypted with a key derived from
// a random secret stored in ~/.charla/key (0600). This keeps the API key
// out of plaintext config without requiring a password prompt.

// EncryptedPrefix marks an encrypted value: ENC:base64(salt|nonce|ciphertext).
const EncryptedPrefix = "ENC:"

const (
	keyFileName     = "key"
	saltSize        = 16
	nonceSize       = 12
	derivedKeySize  = 32
	kdfIterations   = 600000
	masterKeyLength = 32
)

var (
	// ErrInvalidCiphertext indicates a malformed ENC: value.
	ErrInvalidCiphertext = errors.New("invalid encrypted value")

	// ErrDecryptFailed indicates the key file changed or the data was
	// tampered with.
	ErrDecryptFailed = errors.New("decryption failed")
)

// IsEncrypted reports whether a config value carries the ENC: prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// EncryptValue encrypts a plaintext value for storage in the config file.
// The master key file is created on first use.
func EncryptValue(plaintext string) (string, error) {
	master, err := loadOrCreateMasterKey()
	if err != nil {
		return "", err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aead, err := newAEAD(master, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	packed := append(append(salt, nonce...), sealed...)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(packed), nil
}

// DecryptValue reverses EncryptValue.
func DecryptValue(value string) (string, error) {
	if !IsEncrypted(value) {
		return "", ErrInvalidCiphertext
	}

	packed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(packed) < saltSize+nonceSize+1 {
		return "", ErrInvalidCiphertext
	}

	master, err := loadOrCreateMasterKey()
	if err != nil {
		return "", err
	}

	salt := packed[:saltSize]
	nonce := packed[saltSize : saltSize+nonceSize]
	sealed := packed[saltSize+nonceSize:]

	aead, err := newAEAD(master, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func newAEAD(master, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(master, salt, kdfIterations, derivedKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// masterKeyPath is a var so tests can redirect it.
var masterKeyPath = func() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, keyFileName), nil
}

func loadOrCreateMasterKey() ([]byte, error) {
	path, err := masterKeyPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		decoded, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if derr != nil || len(decoded) != masterKeyLength {
			return nil, fmt.Errorf("master key file %s is corrupt", path)
		}
		return decoded, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read master key: %w", err)
	}

	master := make([]byte, masterKeyLength)
	if _, err := io.ReadFull(rand.Reader, master); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(master)
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("write master key: %w", err)
	}
	return master, nil
}
