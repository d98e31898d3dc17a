package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/internal/metrics"
	"github.com/pipfun/walletlink/ports"
)

// SigningState is the state of one signing workflow invocation
type SigningState string

const (
	StateIdle              SigningState = "IDLE"
	StateAwaitingSignature SigningState = "AWAITING_SIGNATURE"
	StateSigned            SigningState = "SIGNED"
	StateFailed            SigningState = "FAILED"
)

// ContextTag builds the correlation tag "<operation>:<entityID>"
func ContextTag(operation, entityID string) string {
	return operation + ":" + entityID
}

func operationOf(context string) string {
	op, _, _ := strings.Cut(context, ":")
	return op
}

// PendingSource hands out deep-link results by context tag
type PendingSource interface {
	ConsumePending(context string) (*core.PendingAction, bool)
}

// Correlator tags sign-and-send requests and matches deep-link results back to them.
// The context tag is the only link across a page reload, so a workflow that finds its
// state IDLE after a reload may still resume.
type Correlator struct {
	pending PendingSource
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	states map[string]SigningState
}

// NewCorrelator creates a correlator reading results from pending
func NewCorrelator(pending PendingSource, m *metrics.Metrics, log *zap.Logger) *Correlator {
	return &Correlator{
		pending: pending,
		metrics: metrics.OrDefault(m),
		logger:  logger.OrNop(log).Named("correlator"),
		states:  make(map[string]SigningState),
	}
}

// State returns the state of the invocation tagged context
func (c *Correlator) State(context string) SigningState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[context]; ok {
		return st
	}
	return StateIdle
}

func (c *Correlator) transition(context string, to SigningState) {
	c.mu.Lock()
	c.states[context] = to
	c.mu.Unlock()
	c.metrics.WorkflowOutcomes.WithLabelValues(operationOf(context), string(to)).Inc()
}

// SignAndSend submits tx through p tagged with context. On the deep-link path it
// returns core.ErrAwaitingRedirect and the invocation stays AWAITING_SIGNATURE until
// Resume finds the result. A wallet that rejects the context argument is retried once
// without it.
func (c *Correlator) SignAndSend(ctx context.Context, p ports.Provider, tx *solana.Transaction, context string) (solana.Signature, error) {
	c.transition(context, StateAwaitingSignature)

	sig, err := p.SignAndSendTransaction(ctx, tx, context)
	if err != nil && contextRejected(err) {
		c.logger.Info("wallet rejected context parameter, retrying without it", zap.String("context", context))
		sig, err = p.SignAndSendTransaction(ctx, tx, "")
	}

	switch {
	case err == nil:
		if sig.IsZero() {
			c.transition(context, StateFailed)
			return solana.Signature{}, core.ErrMissingSignature
		}
		c.transition(context, StateSigned)
		return sig, nil
	case errors.Is(err, core.ErrAwaitingRedirect):
		return solana.Signature{}, err
	default:
		c.transition(context, StateFailed)
		return solana.Signature{}, err
	}
}

// Resume consumes a deep-link result tagged context. ok is false when no matching
// result is pending; results tagged for other workflows are left untouched.
func (c *Correlator) Resume(context string) (sig solana.Signature, ok bool, err error) {
	p, found := c.pending.ConsumePending(context)
	if !found {
		return solana.Signature{}, false, nil
	}

	sig, err = solana.SignatureFromBase58(p.Signature)
	if err != nil {
		c.transition(context, StateFailed)
		return solana.Signature{}, true, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	c.transition(context, StateSigned)
	return sig, true, nil
}

func contextRejected(err error) bool {
	var perr *core.ProviderError
	if errors.As(err, &perr) && perr.Code == core.CodeInvalidParams {
		return true
	}
	return strings.Contains(err.Error(), "Missing or invalid parameters")
}
