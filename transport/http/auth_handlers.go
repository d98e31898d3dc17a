package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/service"
)

// AuthHandlers contains HTTP handlers for the development auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

func tokenResponse(token string, expiresAt time.Time, walletAddress string) gin.H {
	return gin.H{
		"token":         token,
		"expiresAt":     expiresAt.UnixMilli(),
		"walletAddress": walletAddress,
	}
}

// Issue handles auth/issue-auth-token
func (h *AuthHandlers) Issue(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, expiresAt, err := h.authService.Issue(c.Request.Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to issue token"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Signature verification failed"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(token, expiresAt, req.WalletAddress))
}

// Extend handles auth/extend-auth-token; the token comes from the auth middleware
func (h *AuthHandlers) Extend(c *gin.Context) {
	token, expiresAt, err := h.authService.Extend(c.Request.Context(), c.GetString(ctxAuthToken))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to extend token"

		switch {
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Token expired"
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid token"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(token, expiresAt, c.GetString(ctxWalletAddress)))
}

// Verify handles auth/verify-auth-token. If the request reached this handler the
// middleware has already validated the token.
func (h *AuthHandlers) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"walletAddress": c.GetString(ctxWalletAddress),
	})
}
