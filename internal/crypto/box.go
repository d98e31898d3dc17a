// Package crypto holds the codec and authenticated-encryption helpers used by the
// deep-link channel. Everything here is stateless.
package crypto

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/box"

	"github.com/pipfun/walletlink/core"
)

const (
	KeySize   = 32
	NonceSize = 24
)

// Envelope is the wire form of an encrypted deep-link message
type Envelope struct {
	Nonce   [NonceSize]byte
	Payload []byte
}

// EncodeNonce returns the base58 nonce
func (e Envelope) EncodeNonce() string {
	return base58.Encode(e.Nonce[:])
}

// EncodePayload returns the base58 ciphertext
func (e Envelope) EncodePayload() string {
	return base58.Encode(e.Payload)
}

// GenerateKeyPair creates a new box key pair
func GenerateKeyPair(r io.Reader) (core.KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, sec, err := box.GenerateKey(r)
	if err != nil {
		return core.KeyPair{}, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return core.KeyPair{PublicKey: *pub, SecretKey: *sec}, nil
}

// SharedSecret derives the symmetric key for a remote public key
func SharedSecret(remotePublic, localSecret [KeySize]byte) [KeySize]byte {
	var shared [KeySize]byte
	box.Precompute(&shared, &remotePublic, &localSecret)
	return shared
}

// Seal JSON-encodes v and encrypts it under shared with a fresh random nonce
func Seal(v any, shared [KeySize]byte) (Envelope, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	var env Envelope
	if _, err := io.ReadFull(rand.Reader, env.Nonce[:]); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	env.Payload = box.SealAfterPrecomputation(nil, plain, &env.Nonce, &shared)
	return env, nil
}

// Open authenticates and decrypts an envelope. A wrong key never yields plaintext.
func Open(env Envelope, shared [KeySize]byte) ([]byte, error) {
	plain, ok := box.OpenAfterPrecomputation(nil, env.Payload, &env.Nonce, &shared)
	if !ok {
		return nil, core.ErrDecrypt
	}
	return plain, nil
}

// OpenJSON decrypts an envelope and decodes the JSON plaintext into v
func OpenJSON(env Envelope, shared [KeySize]byte, v any) error {
	plain, err := Open(env, shared)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedPayload, err)
	}
	return nil
}
