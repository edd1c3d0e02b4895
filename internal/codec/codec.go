// Package codec implements the reversible content encoding and the
// content-addressed digest used for gated payloads.
package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"arcanum/internal/models"
)

// Codec seals and opens content payloads with XChaCha20-Poly1305. Tokens are
// base64(nonce || ciphertext); any bit flip fails authentication on Decode.
type Codec struct {
	aead cipher.AEAD
}

// New builds a Codec from a 32-byte key.
func New(key []byte) (*Codec, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("codec key: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode seals plaintext into an opaque token. Encode(s) followed by Decode
// returns s for any string, including empty and multi-byte text.
func (c *Codec) Encode(plaintext string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("codec nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode opens a token produced by Encode. Malformed or tampered tokens
// return a DECODE_FAILED AppError; the caller decides the blast radius.
func (c *Codec) Decode(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", models.NewDecodeError(err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", models.NewDecodeError(errors.New("token shorter than nonce"))
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", models.NewDecodeError(err)
	}
	return string(plaintext), nil
}

// Hash returns the content-addressed identifier of content: SHA-256, hex.
// Deterministic and independent of Encode/Decode.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
