package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pipfun/walletlink/core"
)

// ConnectOptions are passed to Provider.Connect
type ConnectOptions struct {
	// OnlyIfTrusted asks for a silent connect without user interaction
	OnlyIfTrusted bool
}

// Provider is the capability set every wallet integration satisfies.
//
// Deep-link providers return core.ErrAwaitingRedirect from Connect, SignMessage and
// SignAndSendTransaction after navigating to the wallet app; the result arrives on the next load.
type Provider interface {
	Name() core.WalletName
	Variant() core.Variant
	Connect(ctx context.Context, opts ConnectOptions) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
	SignAllTransactions(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error)
	// SignAndSendTransaction submits tx; context is an opaque correlation tag, empty to omit
	SignAndSendTransaction(ctx context.Context, tx *solana.Transaction, context string) (solana.Signature, error)
}

// InjectedWallet is a wallet object exposed by the host environment.
// Keys and signatures cross this boundary base58-encoded.
type InjectedWallet interface {
	Connect(ctx context.Context, onlyIfTrusted bool) (string, error)
	Disconnect(ctx context.Context) error
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)
	SignAllTransactions(ctx context.Context, txs [][]byte) ([][]byte, error)
	// SignAndSendTransaction returns the base58 transaction signature
	SignAndSendTransaction(ctx context.Context, tx []byte, context string) (string, error)
}

// KeySource yields the dapp's deep-link encryption key pair
type KeySource interface {
	GetOrCreateKeyPair(ctx context.Context) (core.KeyPair, error)
	// KeyPair returns the stored pair, or core.ErrMissingKeys when none was created
	KeyPair(ctx context.Context) (core.KeyPair, error)
}

// Resolver maps a wallet name onto a provider, or nil when the wallet is unavailable
type Resolver interface {
	Resolve(walletName string) Provider
}
