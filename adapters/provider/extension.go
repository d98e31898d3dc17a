package provider

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/txcodec"
	"github.com/pipfun/walletlink/ports"
)

// Extension adapts an in-page wallet object; every call completes in-process
type Extension struct {
	name          core.WalletName
	wallet        ports.InjectedWallet
	honorsTrusted bool
}

var _ ports.Provider = (*Extension)(nil)

func (p *Extension) Name() core.WalletName { return p.name }

func (p *Extension) Variant() core.Variant { return core.VariantExtension }

// Connect asks the extension for the wallet's public key
func (p *Extension) Connect(ctx context.Context, opts ports.ConnectOptions) (solana.PublicKey, error) {
	addr, err := p.wallet.Connect(ctx, opts.OnlyIfTrusted && p.honorsTrusted)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if addr == "" {
		return solana.PublicKey{}, core.ErrMissingPublicKey
	}
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	return pk, nil
}

func (p *Extension) Disconnect(ctx context.Context) error {
	return p.wallet.Disconnect(ctx)
}

func (p *Extension) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	sig, err := p.wallet.SignMessage(ctx, message)
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 {
		return nil, core.ErrMissingSignature
	}
	return sig, nil
}

func (p *Extension) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	raw, err := txcodec.Serialize(tx)
	if err != nil {
		return nil, err
	}
	signed, err := p.wallet.SignTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}
	return txcodec.Decode(signed)
}

func (p *Extension) SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	raws := make([][]byte, len(txs))
	for i, tx := range txs {
		raw, err := txcodec.Serialize(tx)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}

	signed, err := p.wallet.SignAllTransactions(ctx, raws)
	if err != nil {
		return nil, err
	}
	if len(signed) != len(txs) {
		return nil, fmt.Errorf("wallet returned %d transactions, want %d", len(signed), len(txs))
	}

	out := make([]*solana.Transaction, len(signed))
	for i, raw := range signed {
		if out[i], err = txcodec.Decode(raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Extension) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction, context string) (solana.Signature, error) {
	raw, err := txcodec.Serialize(tx)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := p.wallet.SignAndSendTransaction(ctx, raw, context)
	if err != nil {
		return solana.Signature{}, err
	}
	if sig == "" {
		return solana.Signature{}, core.ErrMissingSignature
	}
	return solana.SignatureFromBase58(sig)
}
