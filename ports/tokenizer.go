package ports

import "github.com/pipfun/walletlink/core"

// Tokenizer converts between auth grants and bearer tokens
type Tokenizer interface {
	GrantToToken(grant *core.AuthGrant) (string, error)
	TokenToGrant(token string) (*core.AuthGrant, error)
}
