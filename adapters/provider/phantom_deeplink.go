package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/internal/txcodec"
	"github.com/pipfun/walletlink/ports"
)

// PhantomDeepLink reaches the Phantom mobile app through universal links.
// Every request navigates away and returns core.ErrAwaitingRedirect; the
// response is picked up from the URL on the next load.
type PhantomDeepLink struct {
	keys    ports.KeySource
	store   ports.Store
	page    ports.Page
	encoder deeplink.Encoder
	logger  *zap.Logger
}

// NewPhantomDeepLink creates the deep-link provider
func NewPhantomDeepLink(keys ports.KeySource, store ports.Store, page ports.Page, encoder deeplink.Encoder, log *zap.Logger) *PhantomDeepLink {
	return &PhantomDeepLink{
		keys:    keys,
		store:   store,
		page:    page,
		encoder: encoder,
		logger:  logger.OrNop(log).Named("deeplink"),
	}
}

var _ ports.Provider = (*PhantomDeepLink)(nil)

func (p *PhantomDeepLink) Name() core.WalletName { return core.WalletPhantom }

func (p *PhantomDeepLink) Variant() core.Variant { return core.VariantDeepLink }

// Connect navigates to the wallet app. A trusted-only connect never navigates: it
// succeeds from a stored deep-link session or fails with core.ErrNotTrusted.
func (p *PhantomDeepLink) Connect(ctx context.Context, opts ports.ConnectOptions) (solana.PublicKey, error) {
	if opts.OnlyIfTrusted {
		return p.trustedAddress(ctx)
	}
	return solana.PublicKey{}, p.send(ctx, deeplink.Request{Action: core.ActionConnect}, false)
}

func (p *PhantomDeepLink) trustedAddress(ctx context.Context) (solana.PublicKey, error) {
	if _, _, err := p.session(ctx); err != nil {
		return solana.PublicKey{}, core.ErrNotTrusted
	}
	addr, err := p.store.Get(ctx, core.KeyWalletAddress)
	if err != nil {
		return solana.PublicKey{}, core.ErrNotTrusted
	}
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	return pk, nil
}

// Disconnect forgets the wallet-side session
func (p *PhantomDeepLink) Disconnect(ctx context.Context) error {
	return p.store.Delete(ctx, core.KeyDeepLinkSession, core.KeyDeepLinkWalletPublicKey)
}

func (p *PhantomDeepLink) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	session, _, err := p.session(ctx)
	if err != nil {
		return nil, err
	}
	req := deeplink.Request{
		Action:  core.ActionSignMessage,
		Payload: deeplink.SignMessagePayload{Session: session, Message: crypto.EncodeBase58(message)},
	}
	return nil, p.send(ctx, req, true)
}

func (p *PhantomDeepLink) SignTransaction(context.Context, *solana.Transaction) (*solana.Transaction, error) {
	return nil, fmt.Errorf("%w: signTransaction over deep links, use signAndSendTransaction", core.ErrUnsupported)
}

func (p *PhantomDeepLink) SignAllTransactions(context.Context, []*solana.Transaction) ([]*solana.Transaction, error) {
	return nil, fmt.Errorf("%w: signAllTransactions over deep links", core.ErrUnsupported)
}

func (p *PhantomDeepLink) SignAndSendTransaction(ctx context.Context, tx *solana.Transaction, context string) (solana.Signature, error) {
	session, _, err := p.session(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	raw, err := txcodec.Serialize(tx)
	if err != nil {
		return solana.Signature{}, err
	}
	req := deeplink.Request{
		Action:  core.ActionSignAndSendTransaction,
		Payload: deeplink.SignAndSendPayload{Session: session, Transaction: crypto.EncodeBase58(raw)},
		Context: context,
	}
	return solana.Signature{}, p.send(ctx, req, true)
}

// session loads the wallet session and encryption key stored by the connect handler
func (p *PhantomDeepLink) session(ctx context.Context) (string, [crypto.KeySize]byte, error) {
	var walletPublic [crypto.KeySize]byte

	session, err := p.store.Get(ctx, core.KeyDeepLinkSession)
	if err != nil {
		return "", walletPublic, notFound(err)
	}
	pub, err := p.store.Get(ctx, core.KeyDeepLinkWalletPublicKey)
	if err != nil {
		return "", walletPublic, notFound(err)
	}
	walletPublic, err = crypto.DecodeKey(pub)
	if err != nil {
		return "", walletPublic, fmt.Errorf("%w: %v", core.ErrNoSession, err)
	}
	return session, walletPublic, nil
}

func notFound(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrNoSession
	}
	return err
}

func (p *PhantomDeepLink) send(ctx context.Context, req deeplink.Request, encrypted bool) error {
	keys, err := p.keys.GetOrCreateKeyPair(ctx)
	if err != nil {
		return err
	}

	var walletPublic [crypto.KeySize]byte
	if encrypted {
		if _, walletPublic, err = p.session(ctx); err != nil {
			return err
		}
	}

	target, err := p.encoder.BuildURL(p.page.Location(), keys, walletPublic, req)
	if err != nil {
		return err
	}

	p.logger.Debug("navigating to wallet app", zap.String("action", string(req.Action)), zap.String("context", req.Context))
	if err := p.page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("failed to navigate to wallet app: %w", err)
	}

	return core.ErrAwaitingRedirect
}
