package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/adapters/tokenizer"
	"github.com/pipfun/walletlink/core"
)

func newAuthService(t *testing.T, allowBypass bool) *AuthService {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewAuthService(tokenizer.NewJWTTokenizer(key), store.NewMemoryStore(), time.Hour, allowBypass, nil)
}

func signOwnership(t *testing.T) (solana.PrivateKey, string, string) {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	message := OwnershipMessage(time.Now())
	sig, err := key.Sign([]byte(message))
	require.NoError(t, err)
	return key, sig.String(), message
}

func TestAuthServiceIssue(t *testing.T) {
	svc := newAuthService(t, false)
	ctx := context.Background()
	key, sig, message := signOwnership(t)

	token, expiresAt, err := svc.Issue(ctx, key.PublicKey().String(), sig, message)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	grant, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), grant.WalletAddress)
}

func TestAuthServiceIssueRejects(t *testing.T) {
	svc := newAuthService(t, false)
	ctx := context.Background()
	key, sig, message := signOwnership(t)
	other := solana.NewWallet().PublicKey().String()

	tests := []struct {
		name      string
		address   string
		signature string
		message   string
		want      error
	}{
		{"bad address", "not-a-key", sig, message, core.ErrInvalidAddress},
		{"wrong signer", other, sig, message, core.ErrInvalidSignature},
		{"tampered message", key.PublicKey().String(), sig, message + ".", core.ErrInvalidSignature},
		{"undecodable signature", key.PublicKey().String(), "0OIl", message, core.ErrInvalidSignature},
		{"bypass disabled", key.PublicKey().String(), core.BypassSignature, core.BypassMessage, core.ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Issue(ctx, tt.address, tt.signature, tt.message)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthServiceBypass(t *testing.T) {
	svc := newAuthService(t, true)
	ctx := context.Background()
	address := solana.NewWallet().PublicKey().String()

	token, _, err := svc.Issue(ctx, address, core.BypassSignature, core.BypassMessage)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Issue(ctx, address, core.BypassSignature, "some other message")
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestAuthServiceExtendRevokesOldToken(t *testing.T) {
	svc := newAuthService(t, false)
	ctx := context.Background()
	key, sig, message := signOwnership(t)

	old, _, err := svc.Issue(ctx, key.PublicKey().String(), sig, message)
	require.NoError(t, err)

	fresh, _, err := svc.Extend(ctx, old)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	_, err = svc.Verify(ctx, old)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
	_, _, err = svc.Extend(ctx, old)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	grant, err := svc.Verify(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), grant.WalletAddress)
}

func TestAuthServiceVerifyExpired(t *testing.T) {
	svc := newAuthService(t, true)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, solana.NewWallet().PublicKey().String(), core.BypassSignature, core.BypassMessage)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	_, err = svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
