package deeplink_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/adapters/deeplink/deeplinktest"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newKeys(t *testing.T) core.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)
	return kp
}

func TestBuildConnectURL(t *testing.T) {
	page := mustURL(t, "https://pip.fun/tokens/abc?tab=1")
	keys := newKeys(t)
	enc := deeplink.Encoder{WalletAppURL: "https://phantom.app/", Cluster: "devnet"}

	raw, err := enc.BuildURL(page, keys, [32]byte{}, deeplink.Request{Action: core.ActionConnect})
	require.NoError(t, err)

	u := mustURL(t, raw)
	assert.Equal(t, "phantom.app", u.Host)
	assert.Equal(t, "/ul/v1/connect", u.Path)

	q := u.Query()
	assert.Equal(t, "https://pip.fun", q.Get(deeplink.ParamAppURL))
	assert.Equal(t, crypto.EncodeBase58(keys.PublicKey[:]), q.Get(deeplink.ParamDappPublicKey))
	assert.Equal(t, "devnet", q.Get(deeplink.ParamCluster))
	assert.False(t, q.Has(deeplink.ParamNonce))
	assert.False(t, q.Has(deeplink.ParamPayload))

	redirect := mustURL(t, q.Get(deeplink.ParamRedirectLink))
	assert.Equal(t, "https://pip.fun/tokens/abc", redirect.Scheme+"://"+redirect.Host+redirect.Path)
	assert.Equal(t, "connect", redirect.Query().Get(deeplink.ParamAction))
	assert.False(t, redirect.Query().Has("tab"))
}

func TestSignAndSendRoundTrip(t *testing.T) {
	page := mustURL(t, "https://pip.fun/create")
	keys := newKeys(t)
	wallet := deeplinktest.NewWallet("Addr111", "sess-1")
	enc := deeplink.Encoder{WalletAppURL: "https://phantom.app"}

	raw, err := enc.BuildURL(page, keys, wallet.Keys.PublicKey, deeplink.Request{
		Action:  core.ActionSignAndSendTransaction,
		Payload: deeplink.SignAndSendPayload{Session: "sess-1", Transaction: "tx58"},
		Context: "finalizePool:tok123",
	})
	require.NoError(t, err)

	req, err := wallet.ReadRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSignAndSendTransaction, req.Action)

	var payload deeplink.SignAndSendPayload
	require.NoError(t, req.DecodePayload(&payload))
	assert.Equal(t, "sess-1", payload.Session)
	assert.Equal(t, "tx58", payload.Transaction)

	back, err := wallet.ApproveSignature(req, "sig58")
	require.NoError(t, err)

	resp, err := deeplink.Parse(back)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSignAndSendTransaction, resp.Action)
	assert.Equal(t, "finalizePool:tok123", resp.Context)

	var data deeplink.SignatureData
	require.NoError(t, resp.Decode(crypto.SharedSecret(wallet.Keys.PublicKey, keys.SecretKey), &data))
	assert.Equal(t, "sig58", data.Signature)

	other := newKeys(t)
	err = resp.Decode(crypto.SharedSecret(wallet.Keys.PublicKey, other.SecretKey), &data)
	assert.ErrorIs(t, err, core.ErrDecrypt)
}

func TestContextOnlyOnSignAndSend(t *testing.T) {
	page := mustURL(t, "https://pip.fun/")
	link := mustURL(t, deeplink.RedirectLink(page, core.ActionSignMessage, "ignored"))
	assert.False(t, link.Query().Has(deeplink.ParamContext))

	link = mustURL(t, deeplink.RedirectLink(page, core.ActionSignAndSendTransaction, ""))
	assert.False(t, link.Query().Has(deeplink.ParamContext))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		failed  bool
	}{
		{"no action", "https://pip.fun/?a=1", core.ErrNoAction, false},
		{"unknown action", "https://pip.fun/?phantom_action=disconnect", core.ErrUnknownAction, false},
		{"connect missing key", "https://pip.fun/?phantom_action=connect&nonce=N&data=D", core.ErrMissingParam, false},
		{"connect ok", "https://pip.fun/?phantom_action=connect&phantom_encryption_public_key=PK&nonce=N&data=D", nil, false},
		{"sign missing data", "https://pip.fun/?phantom_action=signMessage&nonce=N", core.ErrMissingParam, false},
		{"error short circuit", "https://pip.fun/?phantom_action=signAndSendTransaction&errorCode=4001&errorMessage=User+rejected", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := deeplink.Parse(mustURL(t, tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.failed, resp.Failed())
			if tt.failed {
				var werr *core.WalletError
				require.ErrorAs(t, resp.Err(), &werr)
				assert.Equal(t, "4001", werr.Code)
				assert.Equal(t, "User rejected", werr.Message)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	resp, err := deeplink.Parse(mustURL(t, "https://pip.fun/?phantom_action=signMessage&nonce=abc&data=def"))
	require.NoError(t, err)
	var data deeplink.SignatureData
	assert.ErrorIs(t, resp.Decode([32]byte{}, &data), core.ErrMalformedPayload)
}

func TestStripRemovesProtocolParams(t *testing.T) {
	u := mustURL(t, "https://pip.fun/tokens?id=7&phantom_action=signAndSendTransaction&nonce=N&data=D&phantom_encryption_public_key=PK&errorCode=1&errorMessage=m&context=claimFee:A")
	stripped := deeplink.Strip(u)

	q := stripped.Query()
	for _, name := range deeplink.ProtocolParams {
		assert.False(t, q.Has(name), name)
	}
	assert.Equal(t, "7", q.Get("id"))
	assert.Equal(t, "/tokens", stripped.Path)
	assert.True(t, u.Query().Has(deeplink.ParamAction), "input must not be mutated")
}
