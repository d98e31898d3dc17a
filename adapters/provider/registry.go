package provider

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/ports"
)

var mobileUA = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|iemobile|blackberry|opera mini`)

// IsMobile reports whether the user agent belongs to a mobile or touch browser
func IsMobile(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

// variant describes how one wallet is reached
type variant struct {
	// injectedPath is where the extension exposes its object
	injectedPath string
	// honorsTrusted is false for wallets whose connect takes no options
	honorsTrusted bool
	// deepLinkOnMobile substitutes the deep-link provider on mobile browsers
	deepLinkOnMobile bool
}

var variants = map[core.WalletName]variant{
	core.WalletPhantom:  {injectedPath: "phantom.solana", honorsTrusted: true, deepLinkOnMobile: true},
	core.WalletBackpack: {injectedPath: "backpack.solana"},
	core.WalletSolflare: {injectedPath: "solflare"},
}

// Registry resolves wallet names against the environment
type Registry struct {
	env      ports.Environment
	deepLink func() ports.Provider
	logger   *zap.Logger
}

// NewRegistry creates a registry. deepLink builds the deep-link provider used on mobile.
func NewRegistry(env ports.Environment, deepLink func() ports.Provider, log *zap.Logger) *Registry {
	return &Registry{
		env:      env,
		deepLink: deepLink,
		logger:   logger.OrNop(log).Named("wallet"),
	}
}

var _ ports.Resolver = (*Registry)(nil)

// Resolve returns the provider for walletName, or nil when the wallet is unavailable
func (r *Registry) Resolve(walletName string) ports.Provider {
	if walletName == "" {
		r.logger.Info("no wallet name provided")
		return nil
	}

	name, ok := core.ParseWalletName(walletName)
	if !ok {
		r.logger.Info("unsupported wallet", zap.String("wallet", walletName))
		return nil
	}
	v := variants[name]

	if v.deepLinkOnMobile && r.deepLink != nil && IsMobile(r.env.UserAgent()) {
		return r.deepLink()
	}

	injected, ok := r.env.Injected(v.injectedPath)
	if !ok || injected == nil {
		r.logger.Info("wallet not found", zap.String("wallet", string(name)))
		return nil
	}

	return &Extension{name: name, wallet: injected, honorsTrusted: v.honorsTrusted}
}
