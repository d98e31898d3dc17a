package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/ports"
)

// KeyStore owns the dapp's deep-link encryption key pair. The pair is created once and
// reused until storage is wiped: wallet-side sessions are bound to its public key.
type KeyStore struct {
	store  ports.Store
	rand   io.Reader
	logger *zap.Logger

	mu sync.Mutex
}

// NewKeyStore creates a key store over store
func NewKeyStore(store ports.Store, log *zap.Logger) *KeyStore {
	return &KeyStore{store: store, logger: logger.OrNop(log).Named("keystore")}
}

var _ ports.KeySource = (*KeyStore)(nil)

// KeyPair loads the stored key pair
func (k *KeyStore) KeyPair(ctx context.Context) (core.KeyPair, error) {
	pub, err := k.store.Get(ctx, core.KeyDappPublicKey)
	if err != nil {
		return core.KeyPair{}, missing(err)
	}
	sec, err := k.store.Get(ctx, core.KeyDappSecretKey)
	if err != nil {
		return core.KeyPair{}, missing(err)
	}

	var pair core.KeyPair
	if pair.PublicKey, err = crypto.DecodeKey(pub); err != nil {
		return core.KeyPair{}, fmt.Errorf("%w: public key: %v", core.ErrMissingKeys, err)
	}
	if pair.SecretKey, err = crypto.DecodeKey(sec); err != nil {
		return core.KeyPair{}, fmt.Errorf("%w: secret key: %v", core.ErrMissingKeys, err)
	}
	return pair, nil
}

// GetOrCreateKeyPair returns the stored key pair, generating and persisting one when
// either half is absent or unreadable
func (k *KeyStore) GetOrCreateKeyPair(ctx context.Context) (core.KeyPair, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	pair, err := k.KeyPair(ctx)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, core.ErrMissingKeys) {
		return core.KeyPair{}, err
	}

	pair, err = crypto.GenerateKeyPair(k.rand)
	if err != nil {
		return core.KeyPair{}, err
	}
	if err := k.store.Set(ctx, core.KeyDappPublicKey, crypto.EncodeBase58(pair.PublicKey[:])); err != nil {
		return core.KeyPair{}, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if err := k.store.Set(ctx, core.KeyDappSecretKey, crypto.EncodeBase58(pair.SecretKey[:])); err != nil {
		return core.KeyPair{}, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	k.logger.Info("created dapp encryption key pair")
	return pair, nil
}

func missing(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrMissingKeys
	}
	return err
}
