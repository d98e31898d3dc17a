package ports

import (
	"context"

	"github.com/pipfun/walletlink/core"
)

// AuthClient is the external auth service
type AuthClient interface {
	// Issue exchanges a signature over message for a token
	Issue(ctx context.Context, walletAddress, signature, message string) (core.AuthToken, error)
	// Extend renews the token it is authenticated with
	Extend(ctx context.Context, token string) (core.AuthToken, error)
	Verify(ctx context.Context, token string) (bool, error)
}
