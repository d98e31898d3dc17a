// Package localwallet is an injected wallet backed by a local keypair. It stands in
// for a browser extension in development and in tests.
package localwallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/txcodec"
	"github.com/pipfun/walletlink/ports"
)

// Sender submits signed transactions; *rpc.Client satisfies it
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Wallet signs with one private key
type Wallet struct {
	key    solana.PrivateKey
	sender Sender

	// RejectContext makes SignAndSendTransaction fail like wallets that do not
	// accept the context argument
	RejectContext bool

	mu      sync.Mutex
	trusted bool
}

// New creates a wallet for key. sender may be nil, in which case sign-and-send
// signs without submitting and returns the fee payer signature.
func New(key solana.PrivateKey, sender Sender) *Wallet {
	return &Wallet{key: key, sender: sender}
}

// Load reads a solana-keygen JSON keypair file
func Load(path string, sender Sender) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return New(key, sender), nil
}

var _ ports.InjectedWallet = (*Wallet)(nil)

// PublicKey returns the wallet address
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *Wallet) Connect(_ context.Context, onlyIfTrusted bool) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if onlyIfTrusted && !w.trusted {
		return "", &core.ProviderError{Code: 4001, Message: "User rejected the request."}
	}
	w.trusted = true
	return w.key.PublicKey().String(), nil
}

func (w *Wallet) Disconnect(context.Context) error {
	w.mu.Lock()
	w.trusted = false
	w.mu.Unlock()
	return nil
}

func (w *Wallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	sig, err := w.key.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

func (w *Wallet) SignTransaction(_ context.Context, raw []byte) ([]byte, error) {
	tx, err := txcodec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := w.sign(tx); err != nil {
		return nil, err
	}
	return tx.MarshalBinary()
}

func (w *Wallet) SignAllTransactions(ctx context.Context, raws [][]byte) ([][]byte, error) {
	out := make([][]byte, len(raws))
	for i, raw := range raws {
		signed, err := w.SignTransaction(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		out[i] = signed
	}
	return out, nil
}

func (w *Wallet) SignAndSendTransaction(ctx context.Context, raw []byte, context string) (string, error) {
	if context != "" && w.RejectContext {
		return "", &core.ProviderError{Code: core.CodeInvalidParams, Message: "Missing or invalid parameters."}
	}

	tx, err := txcodec.Decode(raw)
	if err != nil {
		return "", err
	}
	if err := w.sign(tx); err != nil {
		return "", err
	}

	if w.sender == nil {
		return tx.Signatures[0].String(), nil
	}
	sig, err := w.sender.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}

// sign fills this wallet's signature slot, leaving other signers untouched
func (w *Wallet) sign(tx *solana.Transaction) error {
	pub := w.key.PublicKey()
	required := int(tx.Message.Header.NumRequiredSignatures)

	slot := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("%s is not a signer of this transaction", pub)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	sig, err := w.key.Sign(msg)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[slot] = sig
	return nil
}
