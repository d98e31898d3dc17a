package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "v1", Options{Timeout: 5 * time.Second}, nil)
}

func TestIssue(t *testing.T) {
	expires := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Millisecond)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/issue-auth-token", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body IssueRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "addr", body.WalletAddress)
		assert.Equal(t, "sig", body.Signature)
		assert.Equal(t, "msg", body.Message)

		_ = json.NewEncoder(w).Encode(TokenResponse{Token: "tok", ExpiresAt: expires.UnixMilli(), WalletAddress: "addr"})
	})

	tok, err := c.Issue(context.Background(), "addr", "sig", "msg")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.Token)
	assert.True(t, expires.Equal(tok.ExpiresAt))
}

func TestIssueRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad signature"}`))
	})

	_, err := c.Issue(context.Background(), "addr", "sig", "msg")
	require.ErrorIs(t, err, core.ErrAuthRejected)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "bad signature", se.Message)
}

func TestExtendAndVerifyUseBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer old" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/v1/auth/extend-auth-token":
			_ = json.NewEncoder(w).Encode(TokenResponse{Token: "new", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()})
		case "/api/v1/auth/verify-auth-token":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	tok, err := c.Extend(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "new", tok.Token)

	_, err = c.Extend(ctx, "other")
	assert.ErrorIs(t, err, core.ErrExtendFailed)

	ok, err := c.Verify(ctx, "old")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoolEndpoints(t *testing.T) {
	var finalized atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stored", r.Header.Get("Authorization"))
		assert.Equal(t, "addr", r.Header.Get(HeaderWalletAddress))

		switch r.URL.Path {
		case "/api/v1/tokens/t1/pool":
			_ = json.NewEncoder(w).Encode(map[string]any{"transactions": []string{"AAA", "BBB"}})
		case "/api/v1/tokens/t1/pool/finalize":
			var body signatureRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			finalized.Store(body.Signature)
		case "/api/v1/tokens/t1/pool/failed":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, core.KeyAuthToken, "stored"))
	require.NoError(t, s.Set(ctx, core.KeyAuthExpiry, core.FormatExpiry(time.Now().Add(time.Hour))))
	c = c.WithStore(s)

	txs, err := c.CreatePool(ctx, "t1", "addr")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, txs)

	require.NoError(t, c.FinalizePool(ctx, "t1", "addr", "sig1"))
	assert.Equal(t, "sig1", finalized.Load())

	err = c.MarkPoolFailed(ctx, "t1", "addr")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "boom", se.Message)
}

func TestClaimFeeEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/tokens/t2/claim-creator-dbc-fee":
			_ = json.NewEncoder(w).Encode(claimFeeResponse{SerializedTransaction: "base64tx"})
		case "/api/v1/tokens/t3/claim-creator-dbc-fee":
			_ = json.NewEncoder(w).Encode(claimFeeResponse{})
		case "/api/v1/tokens/t2/claim-creator-dbc-fee/complete":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	tx, err := c.CreateClaimFee(ctx, "t2", "addr")
	require.NoError(t, err)
	assert.Equal(t, "base64tx", tx)

	_, err = c.CreateClaimFee(ctx, "t3", "addr")
	assert.Error(t, err)

	assert.NoError(t, c.CompleteClaimFee(ctx, "t2", "addr", "sig"))
}

func TestStoredTokenIgnoredWhenExpired(t *testing.T) {
	var auth atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"transactions": []string{"AAA"}})
	})

	ctx := context.Background()
	s := store.NewMemoryStore()
	c = c.WithStore(s)

	tests := []struct {
		name   string
		expiry string
		want   string
	}{
		{"valid", core.FormatExpiry(time.Now().Add(time.Hour)), "Bearer stored"},
		{"expired", core.FormatExpiry(time.Now().Add(-time.Minute)), ""},
		{"missing expiry", "", ""},
		{"corrupt expiry", "soon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, core.KeyAuthToken, "stored"))
			if tt.expiry == "" {
				require.NoError(t, s.Delete(ctx, core.KeyAuthExpiry))
			} else {
				require.NoError(t, s.Set(ctx, core.KeyAuthExpiry, tt.expiry))
			}

			_, err := c.CreatePool(ctx, "t1", "addr")
			require.NoError(t, err)
			assert.Equal(t, tt.want, auth.Load())
		})
	}
}
