package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/service"
)

type sessionView struct {
	WalletName    string     `json:"wallet_name,omitempty"`
	WalletAddress string     `json:"wallet_address,omitempty"`
	Variant       string     `json:"variant,omitempty"`
	AuthToken     string     `json:"auth_token,omitempty"`
	AuthExpiry    *time.Time `json:"auth_expiry,omitempty"`
	Connected     bool       `json:"connected"`
	Authenticated bool       `json:"authenticated"`
}

func viewOf(s core.Session) sessionView {
	v := sessionView{
		WalletName:    s.WalletName,
		WalletAddress: s.WalletAddress,
		Variant:       string(s.Variant),
		AuthToken:     s.AuthToken,
		Connected:     s.Connected(),
		Authenticated: s.Authenticated(),
	}
	if s.AuthToken != "" {
		expiry := s.AuthExpiry.UTC()
		v.AuthExpiry = &expiry
	}
	return v
}

type pendingView struct {
	Action    string `json:"action"`
	Signature string `json:"signature"`
	Context   string `json:"context,omitempty"`
}

func pendingOf(p *core.PendingAction) *pendingView {
	if p == nil {
		return nil
	}
	return &pendingView{Action: string(p.Action), Signature: p.Signature, Context: p.Context}
}

// WalletHandlers serve the wallet host API
type WalletHandlers struct {
	hub *Hub
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(hub *Hub) *WalletHandlers {
	return &WalletHandlers{hub: hub}
}

// Load handles a page load reported by the page script
func (h *WalletHandlers) Load(c *gin.Context) {
	var req struct {
		URL       string `json:"url" binding:"required"`
		UserAgent string `json:"user_agent"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	app, err := h.hub.Load(c.Request.Context(), clientID(c), req.URL, req.UserAgent)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrOriginNotAllowed) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"session": viewOf(app.Session.Snapshot()),
		"pending": pendingOf(app.Session.Pending()),
	}
	if replaced, ok := app.Page.Replaced(); ok {
		resp["replace_url"] = replaced
	}
	if app.Inbound != nil {
		resp["inbound_error"] = app.Inbound.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Connect handles a wallet button click
func (h *WalletHandlers) Connect(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var snap core.Session
	navigate, err := h.hub.Do(clientID(c), func(app *App) error {
		err := app.Session.Connect(c.Request.Context(), req.Wallet)
		snap = app.Session.Snapshot()
		return err
	})
	if navigate != "" {
		c.JSON(http.StatusOK, gin.H{"navigate_url": navigate})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": viewOf(snap)})
}

// Disconnect clears the client's session
func (h *WalletHandlers) Disconnect(c *gin.Context) {
	_, err := h.hub.Do(clientID(c), func(app *App) error {
		app.Session.Disconnect(c.Request.Context())
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Disconnected"})
}

// Session returns the current session snapshot
func (h *WalletHandlers) Session(c *gin.Context) {
	var (
		snap    core.Session
		pending *core.PendingAction
	)
	_, err := h.hub.Do(clientID(c), func(app *App) error {
		snap = app.Session.Snapshot()
		pending = app.Session.Pending()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": viewOf(snap), "pending": pendingOf(pending)})
}

// ConsumePending hands out the pending deep-link result when it matches context
func (h *WalletHandlers) ConsumePending(c *gin.Context) {
	var req struct {
		Context string `json:"context" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var (
		pending *core.PendingAction
		found   bool
	)
	_, err := h.hub.Do(clientID(c), func(app *App) error {
		pending, found = app.Session.ConsumePending(req.Context)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching pending action"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": pendingOf(pending)})
}

// FinalizePool signs and finalizes the pool of the token in the path
func (h *WalletHandlers) FinalizePool(c *gin.Context) {
	tokenID := c.Param("id")

	var sigs []solana.Signature
	navigate, err := h.hub.Do(clientID(c), func(app *App) error {
		var err error
		sigs, err = app.Workflows.FinalizePool(c.Request.Context(), tokenID)
		return err
	})
	if navigate != "" {
		c.JSON(http.StatusOK, gin.H{"navigate_url": navigate})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.String()
	}
	c.JSON(http.StatusOK, gin.H{"signatures": out})
}

// ResumeFinalizePool completes a pool finalization after the wallet app redirect
func (h *WalletHandlers) ResumeFinalizePool(c *gin.Context) {
	h.resume(c, (*service.Workflows).ResumeFinalizePool)
}

// ClaimFee claims the creator fee of the token in the path
func (h *WalletHandlers) ClaimFee(c *gin.Context) {
	var req struct {
		Fee string `json:"fee" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tokenID := c.Param("id")

	var sig solana.Signature
	navigate, err := h.hub.Do(clientID(c), func(app *App) error {
		var err error
		sig, err = app.Workflows.ClaimFee(c.Request.Context(), tokenID, req.Fee)
		return err
	})
	if navigate != "" {
		c.JSON(http.StatusOK, gin.H{"navigate_url": navigate})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signature": sig.String()})
}

// ResumeClaimFee completes a fee claim after the wallet app redirect
func (h *WalletHandlers) ResumeClaimFee(c *gin.Context) {
	h.resume(c, (*service.Workflows).ResumeClaimFee)
}

type resumeFunc func(w *service.Workflows, ctx context.Context, tokenID string) (solana.Signature, bool, error)

func (h *WalletHandlers) resume(c *gin.Context, fn resumeFunc) {
	tokenID := c.Param("id")

	var (
		sig     solana.Signature
		resumed bool
	)
	_, err := h.hub.Do(clientID(c), func(app *App) error {
		var err error
		sig, resumed, err = fn(app.Workflows, c.Request.Context(), tokenID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if !resumed {
		c.JSON(http.StatusNotFound, gin.H{"error": "No result for this token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signature": sig.String()})
}

func respondError(c *gin.Context, err error) {
	statusCode := http.StatusBadGateway
	var perr *core.ProviderError
	var werr *core.WalletError

	// Map specific errors to appropriate status codes
	switch {
	case errors.Is(err, ErrNotLoaded):
		statusCode = http.StatusConflict
	case errors.Is(err, core.ErrWalletNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, core.ErrNotConnected):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, core.ErrNoClaimableFee):
		statusCode = http.StatusBadRequest
	case errors.Is(err, core.ErrNotTrusted), errors.As(err, &perr), errors.As(err, &werr):
		statusCode = http.StatusForbidden
	}

	c.JSON(statusCode, gin.H{"error": err.Error()})
}
