package tenants

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"movingintake/platform/apperr"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCryptoContextMismatch is returned when a credential blob decrypts
// successfully but its embedded (tenant_id, provider) tag does not match the
// caller's context — never surfaced with the offending identifiers attached.
var ErrCryptoContextMismatch = errors.New("credential context mismatch")

// Crypto encrypts/decrypts channel-binding credential blobs, binding each
// ciphertext to a (tenant_id, provider) context tag so a blob copied between
// bindings fails closed instead of silently decrypting under the wrong tenant.
type Crypto struct {
	aead cipher.AEAD
}

// NewCrypto builds a Crypto from a 32-byte key (base64 standard or raw).
func NewCrypto(key []byte) (*Crypto, error) {
	if len(key) != chacha20poly1305.KeySize {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(key)))
		n, err := base64.StdEncoding.Decode(decoded, key)
		if err != nil || n != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("credential encryption key must be %d bytes", chacha20poly1305.KeySize)
		}
		key = decoded[:n]
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("build AEAD cipher: %w", err)
	}
	return &Crypto{aead: aead}, nil
}

// contextTag builds the additional-authenticated-data tag for a binding.
func contextTag(tenantID, provider string) []byte {
	return []byte(tenantID + ":" + provider)
}

// Encrypt seals plaintext, binding it to (tenantID, provider) via AEAD AAD.
// The nonce is prepended to the returned blob.
func (c *Crypto) Encrypt(plaintext map[string]any, tenantID, provider string) ([]byte, error) {
	data, err := json.Marshal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("marshal credential payload: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, data, contextTag(tenantID, provider))
	return append(nonce, sealed...), nil
}

// Decrypt opens blob under the given context. A tag mismatch — including one
// caused by decrypting under the wrong tenant or provider — returns
// ErrCryptoContextMismatch without distinguishing the failure reason,
// per the fail-closed requirement.
func (c *Crypto) Decrypt(blob []byte, tenantID, provider string) (map[string]any, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrCryptoContextMismatch
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, contextTag(tenantID, provider))
	if err != nil {
		return nil, ErrCryptoContextMismatch
	}

	var result map[string]any
	if err := json.Unmarshal(plaintext, &result); err != nil {
		return nil, ErrCryptoContextMismatch
	}
	return result, nil
}

// AsAppError converts a crypto failure into the generic, identifier-free
// apperr the caller should surface.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.CryptoContextMismatch()
}
