// Package security provides the crypto primitives behind the PSK secure
// details codec: per-payment token generation, payment-key derivation and
// authenticated encryption of the private envelope layer.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenBytes is the size of the per-payment random token carried in the
// outer Key header.
const TokenBytes = 16

// NewToken returns a fresh cryptographically random token. A new token is
// generated for every encoded details message so the derived payment key
// is never reused across payments.
func NewToken() ([]byte, error) {
	token := make([]byte, TokenBytes)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("generate psk token: %w", err)
	}
	return token, nil
}

// DerivePaymentKey computes HMAC-SHA256(secret, token). The receiver,
// holding only the shared secret, regenerates the same key from the token
// in the outer Key header.
func DerivePaymentKey(secret, token []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(token)
	return mac.Sum(nil)
}

// Encrypt seals plaintext with XChaCha20-Poly1305 under key. The random
// 24-byte nonce is prepended to the returned ciphertext.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. It fails if the key is
// wrong or the ciphertext was tampered with.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:chacha20poly1305.NonceSizeX], ciphertext[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plaintext, nil
}
