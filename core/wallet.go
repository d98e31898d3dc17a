package core

import "strings"

// WalletName identifies a supported wallet integration
type WalletName string

const (
	WalletPhantom  WalletName = "phantom"
	WalletBackpack WalletName = "backpack"
	WalletSolflare WalletName = "solflare"
)

// PhantomDisplayName is the name persisted under wallet_name after a deep-link connect
const PhantomDisplayName = "Phantom"

// ParseWalletName matches name case-insensitively against the supported wallets
func ParseWalletName(name string) (WalletName, bool) {
	switch w := WalletName(strings.ToLower(strings.TrimSpace(name))); w {
	case WalletPhantom, WalletBackpack, WalletSolflare:
		return w, true
	default:
		return "", false
	}
}

// Variant describes how a provider reaches the wallet
type Variant string

const (
	VariantExtension Variant = "extension"
	VariantDeepLink  Variant = "deeplink"
)

// Action is a deep-link action name, used both on the outbound URL path and in phantom_action
type Action string

const (
	ActionConnect                Action = "connect"
	ActionSignMessage            Action = "signMessage"
	ActionSignAndSendTransaction Action = "signAndSendTransaction"
)

// The deep-link connect is presumed trusted by the app switch, so the auth token is
// requested with this fixed signature and message instead of a signed ownership proof
const (
	BypassSignature = "phantom-mobile-deeplink-bypass-signature-v1"
	BypassMessage   = "mobile deeplink connection"
)
