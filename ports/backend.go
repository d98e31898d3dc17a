package ports

import "context"

// TokenBackend is the subset of the token API the signing workflows call
type TokenBackend interface {
	// CreatePool returns base64-serialized pool creation transactions
	CreatePool(ctx context.Context, tokenID, walletAddress string) ([]string, error)
	FinalizePool(ctx context.Context, tokenID, walletAddress, signature string) error
	MarkPoolFailed(ctx context.Context, tokenID, walletAddress string) error
	// CreateClaimFee returns a base64-serialized fee claim transaction
	CreateClaimFee(ctx context.Context, tokenID, walletAddress string) (string, error)
	CompleteClaimFee(ctx context.Context, tokenID, walletAddress, signature string) error
}
