package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Linked-account OAuth tokens are stored sealed with a key derived from
// the configured secret.
const encryptionSalt = "persona-linked-accounts"

var (
	encryptionKey []byte

	ErrEncryptionNotConfigured = errors.New("encryption not configured")
	ErrCiphertextTooShort      = errors.New("ciphertext too short")
)

func ConfigureEncryption(secret string) {
	if secret == "" {
		return
	}
	reader := hkdf.New(sha256.New, []byte(secret), []byte(encryptionSalt), []byte("token-key"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		panic(fmt.Sprintf("deriving encryption key: %v", err))
	}
	encryptionKey = key
}

func newGCM() (cipher.AEAD, error) {
	if encryptionKey == nil {
		return nil, ErrEncryptionNotConfigured
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func EncryptAESGCM(plaintext string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func DecryptAESGCM(encrypted string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// DecryptOrPlaintext returns value unchanged when it does not decrypt, so
// rows written before encryption was configured stay readable.
func DecryptOrPlaintext(value string) string {
	if value == "" {
		return ""
	}
	decrypted, err := DecryptAESGCM(value)
	if err != nil {
		return value
	}
	return decrypted
}
