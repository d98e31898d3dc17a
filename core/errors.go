package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("key not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrUnsupportedWallet    = errors.New("unsupported wallet")
	ErrNotTrusted           = errors.New("wallet has not trusted this app")
	ErrNoSession            = errors.New("phantom session not found, please connect first")
	ErrMissingPublicKey     = errors.New("failed to get public key")
	ErrMissingSignature     = errors.New("signature missing")
	ErrUnsupported          = errors.New("operation not supported by this wallet provider")
	ErrAwaitingRedirect     = errors.New("awaiting wallet app redirect")
	ErrNoAction             = errors.New("no deep-link action in url")
	ErrUnknownAction        = errors.New("unknown deep-link action")
	ErrMissingParam         = errors.New("missing deep-link parameter")
	ErrDecrypt              = errors.New("failed to decrypt deep-link data")
	ErrMalformedPayload     = errors.New("malformed deep-link payload")
	ErrMissingKeys          = errors.New("missing deep-link keys")
	ErrAuthRejected         = errors.New("signature verification failed")
	ErrExtendFailed         = errors.New("failed to extend token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidAddress       = errors.New("invalid wallet address")
	ErrNoClaimableFee       = errors.New("no claimable fee")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// ProviderError is an RPC-style error raised by a wallet
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// CodeInvalidParams is returned by wallets that reject the extra context argument
const CodeInvalidParams = -32602

// WalletError is the error surfaced by a deep-link response carrying errorCode
type WalletError struct {
	Action  Action
	Code    string
	Message string
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("%s rejected by wallet (%s): %s", e.Action, e.Code, e.Message)
}
