package ports

import (
	"context"
	"net/url"
)

// Environment probes the host the app runs in
type Environment interface {
	UserAgent() string
	// Injected looks up an in-page wallet object by path, e.g. "phantom.solana"
	Injected(path string) (InjectedWallet, bool)
}

// Page is the current top-level document
type Page interface {
	Location() *url.URL
	// Navigate leaves the app; control does not come back in-process
	Navigate(ctx context.Context, target string) error
	// ReplaceURL rewrites the visible URL without reloading
	ReplaceURL(ctx context.Context, target string) error
}
