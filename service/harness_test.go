package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/adapters/browser"
	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/adapters/deeplink/deeplinktest"
	"github.com/pipfun/walletlink/adapters/localwallet"
	"github.com/pipfun/walletlink/adapters/provider"
	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/metrics"
	"github.com/pipfun/walletlink/internal/txcodec"
	"github.com/pipfun/walletlink/ports"
)

const (
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"
	desktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) Chrome/126.0"
	appURL    = "https://app.example/create"
)

type issueCall struct {
	Address, Signature, Message string
}

type fakeAuth struct {
	mu        sync.Mutex
	ttl       time.Duration
	issueErr  error
	extendErr error
	issued    []issueCall
	extended  []string
	seq       int
}

func (f *fakeAuth) Issue(_ context.Context, address, signature, message string) (core.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, issueCall{address, signature, message})
	if f.issueErr != nil {
		return core.AuthToken{}, f.issueErr
	}
	f.seq++
	return core.AuthToken{Token: fmt.Sprintf("token-%d", f.seq), ExpiresAt: time.Now().Add(f.ttl)}, nil
}

func (f *fakeAuth) Extend(_ context.Context, token string) (core.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extended = append(f.extended, token)
	if f.extendErr != nil {
		return core.AuthToken{}, f.extendErr
	}
	return core.AuthToken{Token: "extended", ExpiresAt: time.Now().Add(7 * 24 * time.Hour)}, nil
}

func (f *fakeAuth) Verify(context.Context, string) (bool, error) { return true, nil }

func (f *fakeAuth) calls() []issueCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]issueCall(nil), f.issued...)
}

type recordingEvents struct {
	mu       sync.Mutex
	notices  []core.Notice
	sessions []core.SessionEvent
}

func (r *recordingEvents) PublishNotice(_ context.Context, n core.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingEvents) PublishSession(_ context.Context, e core.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, e)
	return nil
}

func (r *recordingEvents) lastNotice() core.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return core.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// harness is one browser profile: storage, keys and wallets survive reloads, the page
// and session do not
type harness struct {
	t       *testing.T
	ua      string
	store   *store.MemoryStore
	keys    *KeyStore
	auth    *fakeAuth
	events  *recordingEvents
	metrics *metrics.Metrics
	ext     *localwallet.Wallet
	phone   *deeplinktest.Wallet
	injects bool

	page    *browser.Page
	session *SessionStore
}

func newHarness(t *testing.T, ua string, injected bool) *harness {
	t.Helper()
	s := store.NewMemoryStore()
	ext := localwallet.New(solana.NewWallet().PrivateKey, nil)
	h := &harness{
		t:       t,
		ua:      ua,
		store:   s,
		keys:    NewKeyStore(s, nil),
		auth:    &fakeAuth{ttl: 7 * 24 * time.Hour},
		events:  &recordingEvents{},
		metrics: metrics.New(nil),
		ext:     ext,
		phone:   deeplinktest.NewWallet(solana.NewWallet().PublicKey().String(), "phone-session"),
		injects: injected,
	}
	h.load(appURL)
	return h
}

// load simulates a page load at rawURL without running Startup
func (h *harness) load(rawURL string) {
	h.t.Helper()
	page, err := browser.NewPage(rawURL)
	require.NoError(h.t, err)
	h.page = page

	env := browser.Environment{Agent: h.ua, Wallets: map[string]ports.InjectedWallet{}}
	if h.injects {
		env.Wallets["phantom.solana"] = h.ext
	}
	enc := deeplink.Encoder{WalletAppURL: "https://phantom.app"}
	registry := provider.NewRegistry(env, func() ports.Provider {
		return provider.NewPhantomDeepLink(h.keys, h.store, page, enc, nil)
	}, nil)

	h.session = NewSessionStore(SessionConfig{
		Store:    h.store,
		Resolver: registry,
		Auth:     h.auth,
		Env:      env,
		Page:     page,
		Keys:     h.keys,
		Events:   h.events,
		Metrics:  h.metrics,
	})
}

// reload loads rawURL and runs Startup
func (h *harness) reload(rawURL string) error {
	h.load(rawURL)
	return h.session.Startup(context.Background())
}

func (h *harness) get(key string) string {
	v, err := h.store.Get(context.Background(), key)
	if err != nil {
		return ""
	}
	return v
}

// connectDeepLink runs a full mobile connect round trip
func (h *harness) connectDeepLink() {
	h.t.Helper()
	err := h.session.Connect(context.Background(), "phantom")
	require.ErrorIs(h.t, err, core.ErrAwaitingRedirect)

	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(h.t, err)
	back, err := h.phone.ApproveConnect(req)
	require.NoError(h.t, err)
	require.NoError(h.t, h.reload(back.String()))
	require.True(h.t, h.session.Snapshot().Authenticated())
}

func transferFrom(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build()},
		solana.Hash{},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func encodedTransfer(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	s, err := txcodec.EncodeBase64(transferFrom(t, payer))
	require.NoError(t, err)
	return s
}

func randomSignature(t *testing.T) solana.Signature {
	t.Helper()
	sig, err := solana.NewWallet().PrivateKey.Sign([]byte("x"))
	require.NoError(t, err)
	return sig
}
