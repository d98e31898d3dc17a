package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pipfun/walletlink/ports"
)

type poolResponse struct {
	Transactions []string `json:"transactions"`
}

type claimFeeResponse struct {
	SerializedTransaction string `json:"serializedTransaction"`
}

type signatureRequest struct {
	Signature string `json:"signature"`
}

var _ ports.TokenBackend = (*Client)(nil)

func (c *Client) tokenCall(ctx context.Context, endpoint, walletAddress string, body, out any) error {
	return c.do(ctx, request{
		method:         http.MethodPost,
		endpoint:       endpoint,
		body:           body,
		useStoredToken: true,
		headers:        map[string]string{HeaderWalletAddress: walletAddress},
	}, out)
}

// CreatePool requests the pool creation transactions for a token
func (c *Client) CreatePool(ctx context.Context, tokenID, walletAddress string) ([]string, error) {
	var resp poolResponse
	if err := c.tokenCall(ctx, fmt.Sprintf("tokens/%s/pool", tokenID), walletAddress, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) FinalizePool(ctx context.Context, tokenID, walletAddress, signature string) error {
	return c.tokenCall(ctx, fmt.Sprintf("tokens/%s/pool/finalize", tokenID), walletAddress, signatureRequest{Signature: signature}, nil)
}

func (c *Client) MarkPoolFailed(ctx context.Context, tokenID, walletAddress string) error {
	return c.tokenCall(ctx, fmt.Sprintf("tokens/%s/pool/failed", tokenID), walletAddress, nil, nil)
}

// CreateClaimFee requests the creator fee claim transaction
func (c *Client) CreateClaimFee(ctx context.Context, tokenID, walletAddress string) (string, error) {
	var resp claimFeeResponse
	if err := c.tokenCall(ctx, fmt.Sprintf("tokens/%s/claim-creator-dbc-fee", tokenID), walletAddress, nil, &resp); err != nil {
		return "", err
	}
	if resp.SerializedTransaction == "" {
		return "", fmt.Errorf("missing transaction data")
	}
	return resp.SerializedTransaction, nil
}

func (c *Client) CompleteClaimFee(ctx context.Context, tokenID, walletAddress, signature string) error {
	return c.tokenCall(ctx, fmt.Sprintf("tokens/%s/claim-creator-dbc-fee/complete", tokenID), walletAddress, signatureRequest{Signature: signature}, nil)
}
