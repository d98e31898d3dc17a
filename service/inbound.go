package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
)

type inboundHandler func(ctx context.Context, resp *deeplink.Response) error

// handlers returns the inbound handlers in the order they are checked
func (s *SessionStore) handlers() []struct {
	action core.Action
	handle inboundHandler
} {
	return []struct {
		action core.Action
		handle inboundHandler
	}{
		{core.ActionSignMessage, s.handleSignMessage},
		{core.ActionSignAndSendTransaction, s.handleSignAndSend},
		{core.ActionConnect, s.handleConnect},
	}
}

// HandleInbound processes a deep-link response carried by the current URL. The
// protocol parameters are stripped from the visible URL before anything else, so a
// refresh never replays a response. It returns the action found, empty when the URL
// carries none; a returned error has already been surfaced as a notice.
func (s *SessionStore) HandleInbound(ctx context.Context) (core.Action, error) {
	u := s.page.Location()
	if !deeplink.Present(u) {
		return "", nil
	}

	if err := s.page.ReplaceURL(ctx, deeplink.Strip(u).String()); err != nil {
		s.logger.Warn("failed to rewrite url", zap.Error(err))
	}

	resp, err := deeplink.Parse(u)
	if resp == nil {
		return "", err
	}
	if err != nil {
		return resp.Action, s.inboundFailed(ctx, resp.Action, err)
	}

	for _, h := range s.handlers() {
		if h.action != resp.Action {
			continue
		}
		if resp.Failed() {
			return resp.Action, s.inboundFailed(ctx, resp.Action, resp.Err())
		}
		if err := h.handle(ctx, resp); err != nil {
			return resp.Action, s.inboundFailed(ctx, resp.Action, err)
		}
		s.metrics.InboundActions.WithLabelValues(string(resp.Action), "ok").Inc()
		return resp.Action, nil
	}

	return resp.Action, s.inboundFailed(ctx, resp.Action, fmt.Errorf("%w: %q", core.ErrUnknownAction, resp.Action))
}

func (s *SessionStore) inboundFailed(ctx context.Context, action core.Action, err error) error {
	result := "failed"
	var werr *core.WalletError
	if errors.As(err, &werr) {
		result = "rejected"
	}
	s.metrics.InboundActions.WithLabelValues(labelAction(action), result).Inc()

	s.logger.Error("deep-link response failed", zap.String("action", string(action)), zap.Error(err))
	s.Notify(ctx, core.NoticeError, inboundNotice(action, err))
	return err
}

func labelAction(a core.Action) string {
	switch a {
	case core.ActionConnect, core.ActionSignMessage, core.ActionSignAndSendTransaction:
		return string(a)
	default:
		return "unknown"
	}
}

func inboundNotice(action core.Action, err error) string {
	var werr *core.WalletError
	if errors.As(err, &werr) && werr.Message != "" {
		return werr.Message
	}
	switch action {
	case core.ActionConnect:
		return "failed to connect wallet"
	case core.ActionSignMessage:
		return "failed to verify wallet signature"
	case core.ActionSignAndSendTransaction:
		return "signAndSend handling failed"
	default:
		return "unrecognized wallet response"
	}
}

// handleConnect stores the wallet session and issues a token with the bypass signature
func (s *SessionStore) handleConnect(ctx context.Context, resp *deeplink.Response) error {
	keys, err := s.keys.KeyPair(ctx)
	if err != nil {
		return err
	}
	walletPublic, err := crypto.DecodeKey(resp.WalletPublicKey)
	if err != nil {
		return fmt.Errorf("%w: wallet public key: %v", core.ErrMalformedPayload, err)
	}

	var data deeplink.ConnectData
	if err := resp.Decode(crypto.SharedSecret(walletPublic, keys.SecretKey), &data); err != nil {
		return err
	}
	if data.PublicKey == "" || data.Session == "" {
		return fmt.Errorf("%w: invalid session data", core.ErrMalformedPayload)
	}
	if _, err := solana.PublicKeyFromBase58(data.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}

	if err := s.persist(ctx, map[string]string{
		core.KeyDeepLinkSession:         data.Session,
		core.KeyDeepLinkWalletPublicKey: resp.WalletPublicKey,
	}); err != nil {
		return err
	}

	token, err := s.auth.Issue(ctx, data.PublicKey, core.BypassSignature, core.BypassMessage)
	if err != nil {
		return err
	}

	if err := s.persist(ctx, map[string]string{
		core.KeyWalletName:    core.PhantomDisplayName,
		core.KeyWalletAddress: data.PublicKey,
	}); err != nil {
		return err
	}
	if err := s.establish(ctx, core.PhantomDisplayName, data.PublicKey, s.resolver.Resolve(core.PhantomDisplayName), token); err != nil {
		return err
	}

	s.Notify(ctx, core.NoticeSuccess, "wallet connected")
	s.publish(ctx, core.SessionConnected)
	return nil
}

// handleSignMessage completes a connect whose ownership proof was signed in the wallet app
func (s *SessionStore) handleSignMessage(ctx context.Context, resp *deeplink.Response) error {
	shared, err := s.walletSecret(ctx)
	if err != nil {
		return err
	}

	var data deeplink.SignatureData
	if err := resp.Decode(shared, &data); err != nil {
		return err
	}

	address := s.stored(ctx, core.KeyDeepLinkWalletAddress)
	message := s.stored(ctx, core.KeyDeepLinkSigningMessage)
	if data.Signature == "" || address == "" || message == "" {
		return fmt.Errorf("%w: missing signature, wallet or message", core.ErrMalformedPayload)
	}

	token, err := s.auth.Issue(ctx, address, data.Signature, message)
	if err != nil {
		return err
	}

	walletName := s.stored(ctx, core.KeyWalletName)
	if walletName == "" {
		walletName = core.PhantomDisplayName
		if err := s.persist(ctx, map[string]string{core.KeyWalletName: walletName}); err != nil {
			return err
		}
	}
	if err := s.persist(ctx, map[string]string{core.KeyWalletAddress: address}); err != nil {
		return err
	}
	if err := s.establish(ctx, walletName, address, s.resolver.Resolve(core.PhantomDisplayName), token); err != nil {
		return err
	}
	s.clearStash(ctx)

	s.Notify(ctx, core.NoticeSuccess, "wallet connected")
	s.publish(ctx, core.SessionConnected)
	return nil
}

// handleSignAndSend records the signature and context for the workflow that asked for it
func (s *SessionStore) handleSignAndSend(ctx context.Context, resp *deeplink.Response) error {
	shared, err := s.walletSecret(ctx)
	if err != nil {
		return err
	}

	var data deeplink.SignatureData
	if err := resp.Decode(shared, &data); err != nil {
		return err
	}
	if data.Signature == "" {
		return fmt.Errorf("%w: signature missing", core.ErrMalformedPayload)
	}

	s.mu.Lock()
	s.pending = &core.PendingAction{
		Action:    core.ActionSignAndSendTransaction,
		Signature: data.Signature,
		Context:   resp.Context,
	}
	s.mu.Unlock()

	s.publish(ctx, core.SessionPending)
	return nil
}

// walletSecret derives the shared secret with the wallet key learned on connect
func (s *SessionStore) walletSecret(ctx context.Context) ([crypto.KeySize]byte, error) {
	var shared [crypto.KeySize]byte

	keys, err := s.keys.KeyPair(ctx)
	if err != nil {
		return shared, err
	}
	pub := s.stored(ctx, core.KeyDeepLinkWalletPublicKey)
	if pub == "" {
		return shared, fmt.Errorf("%w: wallet encryption key", core.ErrMissingKeys)
	}
	walletPublic, err := crypto.DecodeKey(pub)
	if err != nil {
		return shared, fmt.Errorf("%w: wallet encryption key: %v", core.ErrMissingKeys, err)
	}
	return crypto.SharedSecret(walletPublic, keys.SecretKey), nil
}
