// Package txcodec serializes Solana transactions for wallets and decodes backend payloads.
package txcodec

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Serialize encodes tx in wire format. Missing signatures are zero-filled so partially
// signed transactions can be handed to a wallet.
func Serialize(tx *solana.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction")
	}
	c := *tx
	required := int(c.Message.Header.NumRequiredSignatures)
	if len(c.Signatures) < required {
		sigs := make([]solana.Signature, required)
		copy(sigs, c.Signatures)
		c.Signatures = sigs
	}
	b, err := c.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return b, nil
}

// Decode parses a wire-format transaction
func Decode(b []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(b))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// DecodeBase64 parses a base64 wire-format transaction as returned by the backend
func DecodeBase64(s string) (*solana.Transaction, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction encoding: %w", err)
	}
	return Decode(b)
}

// EncodeBase64 serializes tx and base64-encodes it
func EncodeBase64(tx *solana.Transaction) (string, error) {
	b, err := Serialize(tx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
