package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/internal/txcodec"
	"github.com/pipfun/walletlink/ports"
)

const (
	OperationFinalizePool = "finalizePool"
	OperationClaimFee     = "claimFee"
)

// Workflows are the token operations that need a wallet signature
type Workflows struct {
	session    *SessionStore
	correlator *Correlator
	backend    ports.TokenBackend
	logger     *zap.Logger
}

// NewWorkflows creates the workflows over the session's provider
func NewWorkflows(session *SessionStore, correlator *Correlator, backend ports.TokenBackend, log *zap.Logger) *Workflows {
	return &Workflows{
		session:    session,
		correlator: correlator,
		backend:    backend,
		logger:     logger.OrNop(log).Named("workflow"),
	}
}

func (w *Workflows) signer() (string, ports.Provider, error) {
	snap := w.session.Snapshot()
	p := w.session.Provider()
	if snap.WalletAddress == "" || p == nil {
		return "", nil, core.ErrNotConnected
	}
	return snap.WalletAddress, p, nil
}

// FinalizePool signs the pool creation transactions for tokenID and finalizes the pool
// with the first signature. Any failure marks the pool failed on the backend. On the
// deep-link path it returns core.ErrAwaitingRedirect; ResumeFinalizePool completes it.
func (w *Workflows) FinalizePool(ctx context.Context, tokenID string) ([]solana.Signature, error) {
	address, p, err := w.signer()
	if err != nil {
		return nil, err
	}
	tag := ContextTag(OperationFinalizePool, tokenID)

	encoded, err := w.backend.CreatePool(ctx, tokenID, address)
	if err != nil {
		return nil, w.poolFailed(ctx, tokenID, address, fmt.Errorf("failed to get pool transactions: %w", err))
	}
	if len(encoded) == 0 {
		return nil, w.poolFailed(ctx, tokenID, address, errors.New("no transactions received"))
	}

	signatures := make([]solana.Signature, 0, len(encoded))
	for i, raw := range encoded {
		tx, err := txcodec.DecodeBase64(raw)
		if err != nil {
			return nil, w.poolFailed(ctx, tokenID, address, fmt.Errorf("transaction %d: %w", i, err))
		}

		w.logger.Debug("signing pool transaction", zap.String("token", tokenID), zap.Int("index", i+1), zap.Int("total", len(encoded)))
		sig, err := w.correlator.SignAndSend(ctx, p, tx, tag)
		if errors.Is(err, core.ErrAwaitingRedirect) {
			// only one navigation can be in flight; the pool is finalized from the
			// first signature when the result comes back
			return nil, err
		}
		if err != nil {
			return nil, w.poolFailed(ctx, tokenID, address, err)
		}
		signatures = append(signatures, sig)
	}

	if err := w.backend.FinalizePool(ctx, tokenID, address, signatures[0].String()); err != nil {
		return nil, w.poolFailed(ctx, tokenID, address, fmt.Errorf("failed to finalize token pool: %w", err))
	}

	w.logger.Info("pool finalized", zap.String("token", tokenID), zap.Int("transactions", len(signatures)))
	return signatures, nil
}

// ResumeFinalizePool finishes a FinalizePool that left for the wallet app. ok is false
// when no result for tokenID is pending. Without a connected wallet the result is left
// pending and core.ErrNotConnected is returned.
func (w *Workflows) ResumeFinalizePool(ctx context.Context, tokenID string) (sig solana.Signature, ok bool, err error) {
	address, _, err := w.signer()
	if err != nil {
		return solana.Signature{}, false, err
	}

	sig, ok, err = w.correlator.Resume(ContextTag(OperationFinalizePool, tokenID))
	if !ok {
		return solana.Signature{}, false, nil
	}
	if err != nil {
		return solana.Signature{}, true, w.poolFailed(ctx, tokenID, address, err)
	}

	if err := w.backend.FinalizePool(ctx, tokenID, address, sig.String()); err != nil {
		return solana.Signature{}, true, w.poolFailed(ctx, tokenID, address, fmt.Errorf("failed to finalize token pool: %w", err))
	}
	w.logger.Info("pool finalized after wallet redirect", zap.String("token", tokenID))
	return sig, true, nil
}

func (w *Workflows) poolFailed(ctx context.Context, tokenID, address string, cause error) error {
	w.logger.Error("pool creation failed", zap.String("token", tokenID), zap.Error(cause))
	if err := w.backend.MarkPoolFailed(ctx, tokenID, address); err != nil {
		w.logger.Warn("failed to mark pool failed", zap.String("token", tokenID), zap.Error(err))
	}
	w.session.Notify(ctx, core.NoticeError, cause.Error())
	return cause
}

// ClaimFee claims the creator trading fee of tokenID. fee is the claimable amount shown
// to the user and must be positive.
func (w *Workflows) ClaimFee(ctx context.Context, tokenID, fee string) (solana.Signature, error) {
	amount, err := decimal.NewFromString(fee)
	if err != nil || !amount.IsPositive() {
		w.session.Notify(ctx, core.NoticeWarn, "no claimable fee")
		return solana.Signature{}, core.ErrNoClaimableFee
	}

	address, p, err := w.signer()
	if err != nil {
		return solana.Signature{}, err
	}

	encoded, err := w.backend.CreateClaimFee(ctx, tokenID, address)
	if err != nil {
		return solana.Signature{}, w.claimFailed(ctx, fmt.Errorf("failed to create claim transaction: %w", err))
	}
	tx, err := txcodec.DecodeBase64(encoded)
	if err != nil {
		return solana.Signature{}, w.claimFailed(ctx, err)
	}

	sig, err := w.correlator.SignAndSend(ctx, p, tx, ContextTag(OperationClaimFee, tokenID))
	if errors.Is(err, core.ErrAwaitingRedirect) {
		return solana.Signature{}, err
	}
	if err != nil {
		return solana.Signature{}, w.claimFailed(ctx, err)
	}

	return sig, w.completeClaim(ctx, tokenID, address, sig, amount)
}

// ResumeClaimFee finishes a ClaimFee that left for the wallet app. Like
// ResumeFinalizePool it leaves the result pending while no wallet is connected.
func (w *Workflows) ResumeClaimFee(ctx context.Context, tokenID string) (sig solana.Signature, ok bool, err error) {
	address, _, err := w.signer()
	if err != nil {
		return solana.Signature{}, false, err
	}

	sig, ok, err = w.correlator.Resume(ContextTag(OperationClaimFee, tokenID))
	if !ok {
		return solana.Signature{}, false, nil
	}
	if err != nil {
		return solana.Signature{}, true, w.claimFailed(ctx, err)
	}
	return sig, true, w.completeClaim(ctx, tokenID, address, sig, decimal.Zero)
}

func (w *Workflows) completeClaim(ctx context.Context, tokenID, address string, sig solana.Signature, amount decimal.Decimal) error {
	if err := w.backend.CompleteClaimFee(ctx, tokenID, address, sig.String()); err != nil {
		return w.claimFailed(ctx, fmt.Errorf("failed to complete fee claim: %w", err))
	}
	fields := []zap.Field{zap.String("token", tokenID), zap.Stringer("signature", sig)}
	if !amount.IsZero() {
		fields = append(fields, zap.String("fee", amount.String()))
	}
	w.logger.Info("creator fee claimed", fields...)
	w.session.Notify(ctx, core.NoticeSuccess, "creator trading fee claimed successfully")
	return nil
}

func (w *Workflows) claimFailed(ctx context.Context, cause error) error {
	w.logger.Error("fee claim failed", zap.Error(cause))
	w.session.Notify(ctx, core.NoticeError, cause.Error())
	return cause
}
