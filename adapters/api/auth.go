package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/ports"
)

const (
	endpointIssueToken  = "auth/issue-auth-token"
	endpointExtendToken = "auth/extend-auth-token"
	endpointVerifyToken = "auth/verify-auth-token"
)

// IssueRequest is the body of auth/issue-auth-token
type IssueRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// TokenResponse is returned by issue and extend; ExpiresAt is in Unix milliseconds
type TokenResponse struct {
	Token         string `json:"token"`
	ExpiresAt     int64  `json:"expiresAt"`
	WalletAddress string `json:"walletAddress"`
}

// AuthToken converts the response
func (r TokenResponse) AuthToken() core.AuthToken {
	return core.AuthToken{Token: r.Token, ExpiresAt: time.UnixMilli(r.ExpiresAt)}
}

var _ ports.AuthClient = (*Client)(nil)

// Issue exchanges a signed message for an auth token
func (c *Client) Issue(ctx context.Context, walletAddress, signature, message string) (core.AuthToken, error) {
	var resp TokenResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: endpointIssueToken,
		body:     IssueRequest{WalletAddress: walletAddress, Signature: signature, Message: message},
	}, &resp)
	if err != nil {
		return core.AuthToken{}, fmt.Errorf("%w: %w", core.ErrAuthRejected, err)
	}
	if resp.Token == "" {
		return core.AuthToken{}, fmt.Errorf("%w: empty token", core.ErrAuthRejected)
	}
	return resp.AuthToken(), nil
}

// Extend renews token
func (c *Client) Extend(ctx context.Context, token string) (core.AuthToken, error) {
	var resp TokenResponse
	err := c.do(ctx, request{method: http.MethodPost, endpoint: endpointExtendToken, token: token}, &resp)
	if err != nil {
		return core.AuthToken{}, fmt.Errorf("%w: %w", core.ErrExtendFailed, err)
	}
	if resp.Token == "" {
		return core.AuthToken{}, fmt.Errorf("%w: empty token", core.ErrExtendFailed)
	}
	return resp.AuthToken(), nil
}

// Verify reports whether the backend still accepts token
func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	err := c.do(ctx, request{method: http.MethodPost, endpoint: endpointVerifyToken, token: token}, nil)
	if err == nil {
		return true, nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return false, nil
	}
	return false, err
}
