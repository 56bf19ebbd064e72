// Package vault protects biometric templates at rest and provides the
// shared signing primitives used by the credential codec. All keys derive
// from one process-wide master key; nothing in here is ever keyed by user
// input.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const ivSize = 12
const tagSize = aes.BlockSize
const keySize = 32
const versionMagic = byte('V')

// ErrCorruptData marks a blob that is truncated, malformed, or fails
// authentication. Callers get this instead of cipher internals.
var ErrCorruptData = errors.New("corrupt encrypted blob")

// ErrBadMasterKey marks a master key of the wrong size.
var ErrBadMasterKey = errors.New("master key must be 32 bytes")

// Vault encrypts and decrypts biometric templates and signs credential
// payloads. The cipher key, HMAC key, and anonymization salt are derived
// from the master key with HKDF-SHA256 so rotating one secret rotates all
// three together.
type Vault struct {
	aead     cipher.AEAD
	hmacKey  []byte
	anonSalt []byte
}

// New derives the vault's working keys from a 32-byte master key.
func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != keySize {
		return nil, ErrBadMasterKey
	}

	kdf := hkdf.New(sha256.New, masterKey, nil, []byte("veripass-v1"))

	cipherKey := make([]byte, keySize)
	hmacKey := make([]byte, keySize)
	anonSalt := make([]byte, keySize)
	for _, key := range [][]byte{cipherKey, hmacKey, anonSalt} {
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, err
		}
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Vault{aead: aead, hmacKey: hmacKey, anonSalt: anonSalt}, nil
}

// GenerateMasterKey returns a fresh random master key.
func GenerateMasterKey() ([]byte, error) {
	return randomBytes(keySize)
}

func randomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}
	return value, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns one
// transportable blob. The aad binds the blob to its owning record so a
// template copied onto another row fails to decrypt.
func (v *Vault) Encrypt(aad, plaintext []byte) ([]byte, error) {
	// Never reuse a nonce with a given key.
	nonce, err := randomBytes(ivSize)
	if err != nil {
		return nil, err
	}

	sealed := v.aead.Seal(nil, nonce, plaintext, aad)
	return packBlob(sealed, nonce), nil
}

// Decrypt is the exact inverse of Encrypt. A truncated or tampered blob
// fails with ErrCorruptData.
func (v *Vault) Decrypt(aad, blob []byte) ([]byte, error) {
	sealed, nonce, err := unpackBlob(blob)
	if err != nil {
		return nil, err
	}

	plaintext, err := v.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, ErrCorruptData
	}
	return plaintext, nil
}

// Blob layout: version || tag || iv || ciphertext.
func packBlob(sealedWithTag, iv []byte) []byte {
	iv = iv[:ivSize]

	tagStart := len(sealedWithTag) - tagSize
	tag := sealedWithTag[tagStart:]
	ciphertext := sealedWithTag[:tagStart]

	blob := make([]byte, 1+tagSize+ivSize+len(ciphertext))
	blob[0] = versionMagic
	index := 1

	copy(blob[index:], tag)
	index += tagSize

	copy(blob[index:], iv)
	index += ivSize

	copy(blob[index:], ciphertext)
	return blob
}

func unpackBlob(blob []byte) (sealed, iv []byte, err error) {
	if len(blob) < 1+tagSize+ivSize {
		return nil, nil, ErrCorruptData
	}
	if blob[0] != versionMagic {
		return nil, nil, ErrCorruptData
	}

	index := 1
	tag := blob[index : index+tagSize]
	index += tagSize

	iv = blob[index : index+ivSize]
	index += ivSize

	// GCM wants the tag appended to the ciphertext.
	sealed = append(append([]byte{}, blob[index:]...), tag...)
	return sealed, iv, nil
}
