package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrBadKey             = errors.New("data encryption key must be 32 bytes (base64-encoded)")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// ParseKey decodes a base64 data encryption key. An empty string means
// no encryption.
func ParseKey(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, nil
	}
	dek, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("failed to decode data encryption key: " + err.Error())
	}
	if len(dek) != 32 {
		return nil, ErrBadKey
	}
	return dek, nil
}

func newAEAD(dek []byte) (cipher.AEAD, error) {
	if len(dek) != 32 {
		return nil, ErrBadKey
	}
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals plaintext using AES-256-GCM and a random nonce
func encrypt(gcm cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens ciphertext produced by encrypt
func decrypt(gcm cipher.AEAD, ciphertext []byte) ([]byte, error) {
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, ct := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ct, nil)
}
