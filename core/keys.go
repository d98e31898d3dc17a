package core

import (
	"strconv"
	"time"
)

// Durable client storage keys
const (
	KeyWalletName    = "wallet_name"
	KeyWalletAddress = "wallet_address"
	KeyAuthToken     = "auth_token"
	KeyAuthExpiry    = "auth_expiry"

	KeyDappPublicKey = "dapp_encryption_public_key"
	KeyDappSecretKey = "dapp_encryption_secret_key"

	KeyDeepLinkSession         = "phantom_deeplink_session"
	KeyDeepLinkWalletPublicKey = "phantom_deeplink_encryption_public_key"
	KeyDeepLinkWalletAddress   = "phantom_deeplink_wallet_address"
	KeyDeepLinkSigningMessage  = "phantom_deeplink_signing_message"
)

// SessionKeys are cleared on disconnect; the dapp key pair survives
var SessionKeys = []string{
	KeyWalletName,
	KeyWalletAddress,
	KeyAuthToken,
	KeyAuthExpiry,
	KeyDeepLinkSession,
	KeyDeepLinkWalletPublicKey,
	KeyDeepLinkWalletAddress,
	KeyDeepLinkSigningMessage,
}

// FormatExpiry encodes an auth_expiry value as Unix milliseconds
func FormatExpiry(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseExpiry decodes a stored auth_expiry value
func ParseExpiry(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
