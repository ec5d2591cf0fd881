package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrWeakSecret     = errors.New("secret must be at least 32 bytes")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Encryptor seals payloads at rest. The associated data is authenticated but
// not stored, so a payload only opens under the same context it was sealed
// with.
type Encryptor interface {
	Encrypt(data, associated []byte) ([]byte, error)
	Decrypt(data, associated []byte) ([]byte, error)
}

// NewAESEncryptor creates an AES-GCM encryptor from a raw 16, 24 or 32 byte key.
func NewAESEncryptor(key []byte) (Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption
	}

	return &aesEncryptor{
		gcm: gcm,
	}, nil
}

// DeriveKey expands secret into a 32 byte AES-256 key bound to purpose.
func DeriveKey(secret, salt []byte, purpose string) ([]byte, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(purpose)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewDerivedEncryptor derives a key for purpose and returns an AES-GCM
// encryptor using it.
func NewDerivedEncryptor(secret, salt []byte, purpose string) (Encryptor, error) {
	key, err := DeriveKey(secret, salt, purpose)
	if err != nil {
		return nil, err
	}
	return NewAESEncryptor(key)
}

type aesEncryptor struct {
	gcm cipher.AEAD
}

func (a *aesEncryptor) Encrypt(data, associated []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrEncryption
	}

	return a.gcm.Seal(nonce, nonce, data, associated), nil
}

func (a *aesEncryptor) Decrypt(data, associated []byte) ([]byte, error) {
	nonceSize := a.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecryption
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := a.gcm.Open(nil, nonce, ciphertext, associated)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}
