package browser

import "github.com/pipfun/walletlink/ports"

// Environment is a fixed user agent plus the wallet objects injected into the page
type Environment struct {
	Agent   string
	Wallets map[string]ports.InjectedWallet
}

var _ ports.Environment = Environment{}

func (e Environment) UserAgent() string { return e.Agent }

func (e Environment) Injected(path string) (ports.InjectedWallet, bool) {
	w, ok := e.Wallets[path]
	return w, ok
}
