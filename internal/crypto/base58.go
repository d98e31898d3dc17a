package crypto

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBase58 encodes b with the bitcoin alphabet
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes s; the empty string is rejected
func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty base58 string")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	return b, nil
}

// DecodeKey decodes a base58 32-byte key
func DecodeKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	b, err := DecodeBase58(s)
	if err != nil {
		return key, err
	}
	if len(b) != KeySize {
		return key, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// DecodeNonce decodes a base58 24-byte nonce
func DecodeNonce(s string) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	b, err := DecodeBase58(s)
	if err != nil {
		return nonce, err
	}
	if len(b) != NonceSize {
		return nonce, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(b))
	}
	copy(nonce[:], b)
	return nonce, nil
}
