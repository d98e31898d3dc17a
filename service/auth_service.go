package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/ports"
)

const revokedPrefix = "revoked:"

// AuthService issues wallet auth tokens for development backends
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	logger    *zap.Logger

	tokenTTL    time.Duration
	allowBypass bool
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	tokenTTL time.Duration,
	allowBypass bool,
	log *zap.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		tokenizer:   tokenizer,
		store:       store,
		logger:      logger.OrNop(log).Named("auth"),
		tokenTTL:    tokenTTL,
		allowBypass: allowBypass,
		now:         time.Now,
	}
}

// Issue verifies that message was signed by walletAddress and returns a new token
func (s *AuthService) Issue(ctx context.Context, walletAddress, signature, message string) (string, time.Time, error) {
	pub, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}

	if err := s.verifySignature(pub, signature, message); err != nil {
		return "", time.Time{}, err
	}

	return s.grant(walletAddress)
}

func (s *AuthService) verifySignature(pub solana.PublicKey, signature, message string) error {
	if signature == core.BypassSignature {
		if !s.allowBypass || message != core.BypassMessage {
			return fmt.Errorf("%w: bypass signature not accepted", core.ErrInvalidSignature)
		}
		s.logger.Info("accepted bypass signature", zap.Stringer("wallet", pub))
		return nil
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if !sig.Verify(pub, []byte(message)) {
		return core.ErrInvalidSignature
	}
	return nil
}

func (s *AuthService) grant(walletAddress string) (string, time.Time, error) {
	now := s.now()
	grant := &core.AuthGrant{
		ID:            uuid.New().String(),
		WalletAddress: walletAddress,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.tokenTTL),
	}

	token, err := s.tokenizer.GrantToToken(grant)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}
	return token, grant.ExpiresAt, nil
}

// Extend revokes a still-valid token and issues a fresh one for the same wallet
func (s *AuthService) Extend(ctx context.Context, token string) (string, time.Time, error) {
	grant, err := s.Verify(ctx, token)
	if err != nil {
		return "", time.Time{}, err
	}

	// the old token stays revoked even after it would have expired
	if err := s.store.Set(ctx, revokedPrefix+grant.ID, grant.ExpiresAt.UTC().Format(time.RFC3339)); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return s.grant(grant.WalletAddress)
}

// Verify parses token and checks that it has not been revoked
func (s *AuthService) Verify(ctx context.Context, token string) (*core.AuthGrant, error) {
	grant, err := s.tokenizer.TokenToGrant(token)
	if err != nil {
		return nil, err
	}

	if s.now().After(grant.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	_, err = s.store.Get(ctx, revokedPrefix+grant.ID)
	switch {
	case err == nil:
		return nil, core.ErrInvalidToken
	case errors.Is(err, core.ErrNotFound):
		return grant, nil
	default:
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
}
