package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/adapters/deeplink/deeplinktest"
	"github.com/pipfun/walletlink/core"
)

func assertStripped(t *testing.T, h *harness) {
	t.Helper()
	replaced, ok := h.page.Replaced()
	require.True(t, ok, "url must be rewritten")
	u, err := url.Parse(replaced)
	require.NoError(t, err)
	for _, p := range deeplink.ProtocolParams {
		assert.False(t, u.Query().Has(p), p)
	}
}

func TestInboundConnect(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.connectDeepLink()

	assertStripped(t, h)
	snap := h.session.Snapshot()
	assert.Equal(t, h.phone.Address, snap.WalletAddress)
	assert.Equal(t, core.PhantomDisplayName, snap.WalletName)
	assert.Equal(t, core.VariantDeepLink, snap.Variant)

	calls := h.auth.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, issueCall{h.phone.Address, core.BypassSignature, core.BypassMessage}, calls[0])

	assert.Equal(t, "phone-session", h.get(core.KeyDeepLinkSession))
	assert.Equal(t, h.phone.PublicKey(), h.get(core.KeyDeepLinkWalletPublicKey))
	assert.Equal(t, "Phantom", h.get(core.KeyWalletName))
	assert.Equal(t, h.phone.Address, h.get(core.KeyWalletAddress))
	assert.Equal(t, "token-1", h.get(core.KeyAuthToken))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InboundActions.WithLabelValues("connect", "ok")))
}

func TestInboundConnectKeepsUnrelatedQuery(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.load("https://app.example/create?draft=42")
	require.ErrorIs(t, h.session.Connect(context.Background(), "phantom"), core.ErrAwaitingRedirect)

	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)
	back, err := h.phone.ApproveConnect(req)
	require.NoError(t, err)

	// the redirect link keeps origin and path only; add an app parameter by hand
	q := back.Query()
	q.Set("draft", "42")
	back.RawQuery = q.Encode()
	require.NoError(t, h.reload(back.String()))

	replaced, _ := h.page.Replaced()
	assert.Equal(t, "https://app.example/create?draft=42", replaced)
}

func TestInboundRejectedConnect(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	require.ErrorIs(t, h.session.Connect(context.Background(), "phantom"), core.ErrAwaitingRedirect)
	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)

	err = h.reload(h.phone.Reject(req, "4001", "User rejected the request.").String())
	var werr *core.WalletError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "4001", werr.Code)

	assertStripped(t, h)
	assert.False(t, h.session.Snapshot().Connected())
	assert.Empty(t, h.auth.calls())
	assert.Equal(t, core.Notice{Level: core.NoticeError, Message: "User rejected the request."}, h.events.lastNotice())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InboundActions.WithLabelValues("connect", "rejected")))
}

func TestInboundConnectWrongKey(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	require.ErrorIs(t, h.session.Connect(context.Background(), "phantom"), core.ErrAwaitingRedirect)
	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)

	// a response encrypted for a different dapp key
	req.DappPublicKey = deeplinktest.NewWallet(h.phone.Address, "s").Keys.PublicKey
	back, err := h.phone.ApproveConnect(req)
	require.NoError(t, err)

	err = h.reload(back.String())
	require.ErrorIs(t, err, core.ErrDecrypt)
	assertStripped(t, h)
	assert.False(t, h.session.Snapshot().Connected())
	assert.Empty(t, h.get(core.KeyDeepLinkSession))
}

func TestInboundMissingParams(t *testing.T) {
	h := newHarness(t, mobileUA, false)

	err := h.reload(appURL + "?phantom_action=connect&nonce=abc")
	require.ErrorIs(t, err, core.ErrMissingParam)
	assertStripped(t, h)
	assert.Equal(t, core.NoticeError, h.events.lastNotice().Level)
}

func TestInboundUnknownAction(t *testing.T) {
	h := newHarness(t, mobileUA, false)

	err := h.reload(appURL + "?phantom_action=signAllTransactions&nonce=a&data=b")
	require.ErrorIs(t, err, core.ErrUnknownAction)
	assertStripped(t, h)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.InboundActions.WithLabelValues("unknown", "failed")))
}

func TestInboundMissingDappKeys(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	require.ErrorIs(t, h.session.Connect(context.Background(), "phantom"), core.ErrAwaitingRedirect)
	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)
	back, err := h.phone.ApproveConnect(req)
	require.NoError(t, err)

	require.NoError(t, h.store.Delete(context.Background(), core.KeyDappSecretKey))
	err = h.reload(back.String())
	require.ErrorIs(t, err, core.ErrMissingKeys)
}

func TestInboundSignMessage(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.connectDeepLink()
	ctx := context.Background()

	message := OwnershipMessage(h.session.now())
	require.NoError(t, h.store.Set(ctx, core.KeyDeepLinkWalletAddress, h.phone.Address))
	require.NoError(t, h.store.Set(ctx, core.KeyDeepLinkSigningMessage, message))

	_, err := h.session.Provider().SignMessage(ctx, []byte(message))
	require.ErrorIs(t, err, core.ErrAwaitingRedirect)

	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)
	assert.Equal(t, core.ActionSignMessage, req.Action)

	sig := randomSignature(t).String()
	back, err := h.phone.ApproveSignature(req, sig)
	require.NoError(t, err)
	require.NoError(t, h.reload(back.String()))

	calls := h.auth.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, issueCall{h.phone.Address, sig, message}, calls[1])
	assert.Equal(t, "token-2", h.session.Snapshot().AuthToken)
	assert.Empty(t, h.get(core.KeyDeepLinkWalletAddress))
	assert.Empty(t, h.get(core.KeyDeepLinkSigningMessage))
	assertStripped(t, h)
}

func TestInboundSignMessageWithoutStash(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.connectDeepLink()
	ctx := context.Background()

	_, err := h.session.Provider().SignMessage(ctx, []byte("m"))
	require.ErrorIs(t, err, core.ErrAwaitingRedirect)
	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)
	back, err := h.phone.ApproveSignature(req, randomSignature(t).String())
	require.NoError(t, err)

	err = h.reload(back.String())
	require.ErrorIs(t, err, core.ErrMalformedPayload)
	assert.Len(t, h.auth.calls(), 1)
	// the stored session is still restored after the failed response
	assert.True(t, h.session.Snapshot().Authenticated())
}

func TestInboundSignAndSendSetsPending(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.connectDeepLink()
	ctx := context.Background()

	tx := transferFrom(t, solana.MustPublicKeyFromBase58(h.phone.Address))
	_, err := h.session.Provider().SignAndSendTransaction(ctx, tx, "finalizePool:tok123")
	require.ErrorIs(t, err, core.ErrAwaitingRedirect)

	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)
	sig := randomSignature(t).String()
	back, err := h.phone.ApproveSignature(req, sig)
	require.NoError(t, err)
	require.NoError(t, h.reload(back.String()))

	assertStripped(t, h)
	assert.Equal(t, &core.PendingAction{
		Action:    core.ActionSignAndSendTransaction,
		Signature: sig,
		Context:   "finalizePool:tok123",
	}, h.session.Pending())
	assert.True(t, h.session.Snapshot().Authenticated(), "session is rehydrated alongside the pending result")

	_, ok := h.session.ConsumePending("claimFee:tok123")
	assert.False(t, ok)
	assert.NotNil(t, h.session.Pending())

	got, ok := h.session.ConsumePending("finalizePool:tok123")
	require.True(t, ok)
	assert.Equal(t, sig, got.Signature)
	assert.Nil(t, h.session.Pending())
}

func TestInboundSignAndSendRejected(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.connectDeepLink()

	tx := transferFrom(t, solana.MustPublicKeyFromBase58(h.phone.Address))
	_, err := h.session.Provider().SignAndSendTransaction(context.Background(), tx, "claimFee:A")
	require.ErrorIs(t, err, core.ErrAwaitingRedirect)
	req, err := h.phone.ReadRequest(h.page.Navigation())
	require.NoError(t, err)

	err = h.reload(h.phone.Reject(req, "-32603", "Transaction failed").String())
	require.Error(t, err)
	assert.Nil(t, h.session.Pending())
	assert.Equal(t, core.Notice{Level: core.NoticeError, Message: "Transaction failed"}, h.events.lastNotice())
	assertStripped(t, h)
}

func TestClearPendingAction(t *testing.T) {
	h := newHarness(t, mobileUA, false)
	h.session.pending = &core.PendingAction{Action: core.ActionSignAndSendTransaction, Signature: "s", Context: "claimFee:A"}

	h.session.ClearPendingAction()
	assert.Nil(t, h.session.Pending())
}
