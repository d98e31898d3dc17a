package store

import (
	"context"

	"github.com/pipfun/walletlink/ports"
)

// Namespaced scopes a shared store to one client by prefixing every key
type Namespaced struct {
	inner  ports.Store
	prefix string
}

// Namespace returns a view of s whose keys live under walletlink:<clientID>:
func Namespace(s ports.Store, clientID string) ports.Store {
	return &Namespaced{inner: s, prefix: "walletlink:" + clientID + ":"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.prefix + k
	}
	return n.inner.Delete(ctx, prefixed...)
}
