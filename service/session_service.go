package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/provider"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/internal/metrics"
	"github.com/pipfun/walletlink/ports"
)

// DefaultExtendThreshold is the remaining token lifetime under which connect extends the token
const DefaultExtendThreshold = 3 * 24 * time.Hour

// SessionConfig wires a SessionStore
type SessionConfig struct {
	Store    ports.Store
	Resolver ports.Resolver
	Auth     ports.AuthClient
	Env      ports.Environment
	Page     ports.Page
	Keys     ports.KeySource
	Events   ports.EventPublisher
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	ExtendThreshold time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

// SessionStore is the application context for one client: the connected wallet, its
// auth token, and the latest deep-link result awaiting a workflow. State only changes
// through its methods.
type SessionStore struct {
	store    ports.Store
	resolver ports.Resolver
	auth     ports.AuthClient
	env      ports.Environment
	page     ports.Page
	keys     ports.KeySource
	events   ports.EventPublisher
	metrics  *metrics.Metrics
	logger   *zap.Logger

	extendThreshold time.Duration
	now             func() time.Time

	mu         sync.Mutex
	walletName string
	address    string
	provider   ports.Provider
	token      core.AuthToken
	connecting bool
	pending    *core.PendingAction
}

// NewSessionStore creates an empty session; call Startup once per load
func NewSessionStore(cfg SessionConfig) *SessionStore {
	s := &SessionStore{
		store:           cfg.Store,
		resolver:        cfg.Resolver,
		auth:            cfg.Auth,
		env:             cfg.Env,
		page:            cfg.Page,
		keys:            cfg.Keys,
		events:          cfg.Events,
		metrics:         metrics.OrDefault(cfg.Metrics),
		logger:          logger.OrNop(cfg.Logger).Named("wallet"),
		extendThreshold: cfg.ExtendThreshold,
		now:             cfg.Now,
	}
	if s.extendThreshold == 0 {
		s.extendThreshold = DefaultExtendThreshold
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Snapshot returns the current session. An expired token is reported as absent, and a
// token is never reported without a wallet address.
func (s *SessionStore) Snapshot() core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := core.Session{
		WalletName:    s.walletName,
		WalletAddress: s.address,
		Connecting:    s.connecting,
	}
	if s.provider != nil {
		snap.Variant = s.provider.Variant()
	}
	if s.address != "" && s.token.Valid(s.now()) {
		snap.AuthToken = s.token.Token
		snap.AuthExpiry = s.token.ExpiresAt
	}
	return snap
}

// Provider returns the connected provider, or nil
func (s *SessionStore) Provider() ports.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// Pending returns a copy of the pending deep-link action, or nil
func (s *SessionStore) Pending() *core.PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// ClearPendingAction drops the pending deep-link action
func (s *SessionStore) ClearPendingAction() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// ConsumePending removes and returns the pending action when it is a sign-and-send
// result tagged with context. Any other pending action is left in place.
func (s *SessionStore) ConsumePending(context string) (*core.PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending.Matches(context) {
		return nil, false
	}
	p := s.pending
	s.pending = nil
	return p, true
}

// Connect runs an explicit, user-initiated connect. It returns core.ErrAwaitingRedirect
// when the wallet app was opened; the flow then completes in Startup on the next load.
func (s *SessionStore) Connect(ctx context.Context, walletName string) error {
	s.mu.Lock()
	s.connecting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	p := s.resolver.Resolve(walletName)
	if p == nil {
		s.metrics.ConnectAttempts.WithLabelValues(walletName, "not_found").Inc()
		s.Notify(ctx, core.NoticeWarn, fmt.Sprintf("%s wallet not found", walletName))
		return fmt.Errorf("%w: %s", core.ErrWalletNotFound, walletName)
	}
	label := string(p.Name())

	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()

	err := s.connect(ctx, walletName, p)
	switch {
	case err == nil:
		s.metrics.ConnectAttempts.WithLabelValues(label, "connected").Inc()
		return nil
	case errors.Is(err, core.ErrAwaitingRedirect):
		s.metrics.ConnectAttempts.WithLabelValues(label, "redirect").Inc()
		return err
	default:
		s.metrics.ConnectAttempts.WithLabelValues(label, "failed").Inc()
		s.logger.Error("connect error", zap.String("wallet", walletName), zap.Error(err))
		s.resetFailedConnect(ctx)
		s.Notify(ctx, core.NoticeError, "failed to connect wallet")
		return err
	}
}

func (s *SessionStore) connect(ctx context.Context, walletName string, p ports.Provider) error {
	pk, err := p.Connect(ctx, ports.ConnectOptions{OnlyIfTrusted: false})
	if err != nil {
		return err
	}
	if pk.IsZero() {
		return core.ErrMissingPublicKey
	}
	address := pk.String()

	if err := s.persist(ctx, map[string]string{
		core.KeyWalletName:    walletName,
		core.KeyWalletAddress: address,
	}); err != nil {
		return err
	}

	message := OwnershipMessage(s.now())
	// the deep-link signMessage handler finishes the connect from this stash
	if err := s.persist(ctx, map[string]string{
		core.KeyDeepLinkWalletAddress:  address,
		core.KeyDeepLinkSigningMessage: message,
	}); err != nil {
		return err
	}

	sig, err := p.SignMessage(ctx, []byte(message))
	if err != nil {
		return err
	}
	if len(sig) == 0 {
		return core.ErrMissingSignature
	}

	token, err := s.auth.Issue(ctx, address, crypto.EncodeBase58(sig), message)
	if err != nil {
		return err
	}

	if err := s.establish(ctx, walletName, address, p, token); err != nil {
		return err
	}
	s.clearStash(ctx)

	s.Notify(ctx, core.NoticeSuccess, "wallet connected")
	s.publish(ctx, core.SessionConnected)

	s.maybeExtend(ctx)
	return nil
}

// establish sets address and token together and persists the token
func (s *SessionStore) establish(ctx context.Context, walletName, address string, p ports.Provider, token core.AuthToken) error {
	if err := s.persist(ctx, map[string]string{
		core.KeyAuthToken:  token.Token,
		core.KeyAuthExpiry: core.FormatExpiry(token.ExpiresAt),
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.walletName = walletName
	s.address = address
	s.provider = p
	s.token = token
	s.mu.Unlock()
	return nil
}

// maybeExtend renews a token close to expiry; failure leaves the current token in place
func (s *SessionStore) maybeExtend(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token.Token == "" || token.ExpiresAt.Sub(s.now()) >= s.extendThreshold {
		return
	}

	extended, err := s.auth.Extend(ctx, token.Token)
	if err != nil {
		s.logger.Warn("token extension failed", zap.Error(err))
		return
	}

	if err := s.persist(ctx, map[string]string{
		core.KeyAuthToken:  extended.Token,
		core.KeyAuthExpiry: core.FormatExpiry(extended.ExpiresAt),
	}); err != nil {
		s.logger.Warn("failed to persist extended token", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.address != "" {
		s.token = extended
	}
	s.mu.Unlock()
}

func (s *SessionStore) resetFailedConnect(ctx context.Context) {
	s.mu.Lock()
	s.walletName = ""
	s.address = ""
	s.token = core.AuthToken{}
	s.provider = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx,
		core.KeyWalletName,
		core.KeyWalletAddress,
		core.KeyAuthToken,
		core.KeyAuthExpiry,
		core.KeyDeepLinkWalletAddress,
		core.KeyDeepLinkSigningMessage,
	); err != nil {
		s.logger.Warn("failed to clear connect state", zap.Error(err))
	}
}

// Disconnect clears the session and every session storage key. The dapp key pair survives.
func (s *SessionStore) Disconnect(ctx context.Context) {
	s.mu.Lock()
	p := s.provider
	s.walletName = ""
	s.address = ""
	s.token = core.AuthToken{}
	s.provider = nil
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		if err := p.Disconnect(ctx); err != nil {
			s.logger.Warn("provider disconnect failed", zap.Error(err))
		}
	}

	if err := s.store.Delete(ctx, core.SessionKeys...); err != nil {
		s.logger.Error("disconnect error", zap.Error(err))
	}

	s.publish(ctx, core.SessionDisconnected)
}

// Startup runs once per load: a deep-link response in the URL is handled first, then the
// session is rehydrated from storage unless that response already established one.
// Errors are non-fatal and only reported.
func (s *SessionStore) Startup(ctx context.Context) error {
	action, err := s.HandleInbound(ctx)
	if err != nil {
		s.logger.Error("deep-link handling failed", zap.String("action", string(action)), zap.Error(err))
	}

	if s.Snapshot().Connected() {
		return err
	}

	s.rehydrate(ctx)
	return err
}

func (s *SessionStore) rehydrate(ctx context.Context) {
	walletName := s.stored(ctx, core.KeyWalletName)
	if walletName == "" {
		return
	}
	address := s.stored(ctx, core.KeyWalletAddress)
	token := s.storedToken(ctx)
	valid := token.Valid(s.now())

	if valid && address != "" && provider.IsMobile(s.env.UserAgent()) {
		s.mu.Lock()
		s.walletName = walletName
		s.address = address
		s.provider = s.resolver.Resolve(walletName)
		s.token = token
		s.mu.Unlock()
		s.publish(ctx, core.SessionRestored)
		return
	}

	p := s.resolver.Resolve(walletName)
	if p == nil {
		return
	}

	pk, err := p.Connect(ctx, ports.ConnectOptions{OnlyIfTrusted: true})
	if err != nil {
		s.logger.Warn("auto-connect skipped", zap.String("wallet", walletName), zap.Error(err))
		return
	}

	if pk.String() != address {
		// the extension switched accounts; the stored token belongs to the old one
		s.logger.Info("wallet account changed, dropping stored token", zap.String("wallet", walletName))
		valid = false
		if err := s.store.Delete(ctx, core.KeyAuthToken, core.KeyAuthExpiry); err != nil {
			s.logger.Warn("failed to clear stored token", zap.Error(err))
		}
		if err := s.persist(ctx, map[string]string{core.KeyWalletAddress: pk.String()}); err != nil {
			s.logger.Warn("failed to persist wallet address", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.walletName = walletName
	s.address = pk.String()
	s.provider = p
	if valid {
		s.token = token
	}
	s.mu.Unlock()
	s.publish(ctx, core.SessionRestored)
}

// Notify publishes a user-facing notice; publishing failures are only logged
func (s *SessionStore) Notify(ctx context.Context, level core.NoticeLevel, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishNotice(ctx, core.Notice{Level: level, Message: message}); err != nil {
		s.logger.Warn("failed to publish notice", zap.Error(err))
	}
}

func (s *SessionStore) publish(ctx context.Context, kind string) {
	if s.events == nil {
		return
	}
	snap := s.Snapshot()
	event := core.SessionEvent{
		Kind:          kind,
		WalletName:    snap.WalletName,
		WalletAddress: snap.WalletAddress,
		At:            s.now(),
	}
	if err := s.events.PublishSession(ctx, event); err != nil {
		s.logger.Warn("failed to publish session event", zap.Error(err))
	}
}

func (s *SessionStore) persist(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := s.store.Set(ctx, k, v); err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrStoreOperationFailed, k, err)
		}
	}
	return nil
}

func (s *SessionStore) clearStash(ctx context.Context) {
	if err := s.store.Delete(ctx, core.KeyDeepLinkWalletAddress, core.KeyDeepLinkSigningMessage); err != nil {
		s.logger.Warn("failed to clear signing stash", zap.Error(err))
	}
}

// stored reads key, treating any failure as absent
func (s *SessionStore) stored(ctx context.Context, key string) string {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("failed to read storage", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return v
}

func (s *SessionStore) storedToken(ctx context.Context) core.AuthToken {
	token := s.stored(ctx, core.KeyAuthToken)
	if token == "" {
		return core.AuthToken{}
	}
	expiry, err := core.ParseExpiry(s.stored(ctx, core.KeyAuthExpiry))
	if err != nil {
		return core.AuthToken{}
	}
	return core.AuthToken{Token: token, ExpiresAt: expiry}
}
