package core

import "time"

// AuthToken is a backend-issued credential for a wallet address
type AuthToken struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the token is present and not expired at now
func (t AuthToken) Valid(now time.Time) bool {
	return t.Token != "" && t.ExpiresAt.After(now)
}

// Session is a read-only snapshot of the wallet session state
type Session struct {
	WalletName    string
	WalletAddress string
	Variant       Variant
	AuthToken     string
	AuthExpiry    time.Time
	Connecting    bool
}

// Connected reports whether a wallet address is attached
func (s Session) Connected() bool {
	return s.WalletAddress != ""
}

// Authenticated reports whether the session carries a usable auth token
func (s Session) Authenticated() bool {
	return s.WalletAddress != "" && s.AuthToken != ""
}

// KeyPair is the dapp's box key pair for the deep-link encrypted channel
type KeyPair struct {
	PublicKey [32]byte
	SecretKey [32]byte
}

// PendingAction is the most recent decoded deep-link response awaiting consumption
type PendingAction struct {
	Action    Action
	Signature string
	Context   string
}

// Matches reports whether the pending action belongs to a sign-and-send step tagged with context
func (p *PendingAction) Matches(context string) bool {
	return p != nil && p.Action == ActionSignAndSendTransaction && p.Context == context
}

// NoticeLevel mirrors the severity of a user-facing notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarn    NoticeLevel = "warn"
	NoticeError   NoticeLevel = "error"
)

// Notice is a neutral user-facing message
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// SessionEvent is emitted whenever the session state changes
type SessionEvent struct {
	Kind          string    `json:"kind"`
	WalletName    string    `json:"wallet_name,omitempty"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	At            time.Time `json:"at"`
}

const (
	SessionConnected    = "connected"
	SessionDisconnected = "disconnected"
	SessionRestored     = "restored"
	SessionPending      = "pending_action"
)

// AuthGrant is the server-side view of an issued auth token
type AuthGrant struct {
	ID            string
	WalletAddress string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
