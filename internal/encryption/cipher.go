// Package encryption implements transparent field-level encryption for
// personal data: the AES cipher engine, the per-entity classification
// registry, and the seal/open passes run by stores around every write and read.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf16"

	dErrors "assura/pkg/domain-errors"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the CBC initialisation vector length in bytes.
	IVSize = aes.BlockSize

	// Values longer than this containing a base64 marker are treated as ciphertext.
	alreadyEncryptedMinLen = 100
)

// Cipher encrypts single field values and derives their search hashes.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	CreateHash(data string) string
	VerifyHash(data, hash string) bool
}

// Engine is the AES-256-CBC Cipher with a fixed key and IV.
//
// A fixed IV makes ciphertext deterministic: equal plaintexts encrypt to
// equal ciphertexts. Search goes through CreateHash, not ciphertext equality.
type Engine struct {
	block cipher.Block
	iv    []byte
}

// NewEngine builds an Engine from raw key material.
func NewEngine(key, iv []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key)))
	}
	if len(iv) != IVSize {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("encryption IV must be %d bytes, got %d", IVSize, len(iv)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "create AES cipher")
	}
	return &Engine{block: block, iv: bytes.Clone(iv)}, nil
}

// NewEngineFromBase64 decodes standard-base64 key material and builds an Engine.
func NewEngineFromBase64(key, iv string) (*Engine, error) {
	if key == "" || iv == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "encryption key and IV are required")
	}
	rawKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "encryption key is not valid base64")
	}
	rawIV, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "encryption IV is not valid base64")
	}
	return NewEngine(rawKey, rawIV)
}

// GenerateKeyMaterial returns a random key and IV, base64 encoded.
func GenerateKeyMaterial() (key, iv string, err error) {
	rawKey := make([]byte, KeySize)
	if _, err := rand.Read(rawKey); err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	rawIV := make([]byte, IVSize)
	if _, err := rand.Read(rawIV); err != nil {
		return "", "", fmt.Errorf("generate iv: %w", err)
	}
	return base64.StdEncoding.EncodeToString(rawKey), base64.StdEncoding.EncodeToString(rawIV), nil
}

// Encrypt returns base64(AES-CBC(PKCS7(plaintext))). Empty input is returned unchanged.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, e.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Empty input is returned unchanged.
func (e *Engine) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return ciphertext, nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "ciphertext is not valid base64")
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", dErrors.New(dErrors.CodeCrypto, "ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(e.block, e.iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// CreateHash returns base64(SHA-256(lower(data))), or "" for empty input.
func (e *Engine) CreateHash(data string) string {
	return CreateHash(data)
}

// VerifyHash reports whether hash is the search hash of data.
func (e *Engine) VerifyHash(data, hash string) bool {
	if data == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(CreateHash(data)), []byte(hash)) == 1
}

// SelfTest round-trips a canary value; used by the readiness probe.
func (e *Engine) SelfTest() error {
	const canary = "assura-readiness"
	ct, err := e.Encrypt(canary)
	if err != nil {
		return err
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		return err
	}
	if pt != canary {
		return dErrors.New(dErrors.CodeCrypto, "cipher self-test mismatch")
	}
	return nil
}

// CreateHash is the key-independent search hash. It lower-cases with
// Unicode rules so "NOVÁK" and "novák" hash equal.
func CreateHash(data string) string {
	if data == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(data)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// LooksEncrypted is the heuristic used to avoid double encryption on
// re-save: long values containing a base64 marker character are assumed
// to be ciphertext already. Short ciphertexts are not detected. Length is
// counted in UTF-16 code units, not bytes, so diacritics do not push
// plaintext over the threshold.
func LooksEncrypted(value string) bool {
	return utf16Len(value) > alreadyEncryptedMinLen && strings.ContainsAny(value, "+/=")
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, dErrors.New(dErrors.CodeCrypto, "invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, dErrors.New(dErrors.CodeCrypto, "invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, dErrors.New(dErrors.CodeCrypto, "invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
