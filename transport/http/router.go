package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/service"
)

// RouterOptions configure the wallet host router
type RouterOptions struct {
	// SecureCookie marks the client cookie Secure
	SecureCookie bool
	// Gatherer serves /metrics when set
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// SetupRouter sets up the wallet host router
func SetupRouter(hub *Hub, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger.OrNop(opts.Logger).Named("http")))

	// Create handlers
	handlers := NewWalletHandlers(hub)

	wallet := router.Group("/wallet")
	wallet.Use(ClientMiddleware(opts.SecureCookie))
	{
		wallet.POST("/load", handlers.Load)
		wallet.POST("/connect", handlers.Connect)
		wallet.POST("/disconnect", handlers.Disconnect)
		wallet.GET("/session", handlers.Session)
		wallet.POST("/pending/consume", handlers.ConsumePending)

		tokens := wallet.Group("/tokens/:id")
		tokens.POST("/finalize-pool", handlers.FinalizePool)
		tokens.POST("/finalize-pool/resume", handlers.ResumeFinalizePool)
		tokens.POST("/claim-fee", handlers.ClaimFee)
		tokens.POST("/claim-fee/resume", handlers.ResumeClaimFee)
	}

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

// SetupAuthRouter sets up the development auth server, mounted under /api/<version>/
func SetupAuthRouter(authService *service.AuthService, version string, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger.OrNop(log).Named("http")))

	handlers := NewAuthHandlers(authService)

	auth := router.Group("/api/" + version + "/auth")
	auth.POST("/issue-auth-token", handlers.Issue)

	// Protected routes
	protected := auth.Group("")
	protected.Use(AuthMiddleware(authService))
	{
		protected.POST("/extend-auth-token", handlers.Extend)
		protected.POST("/verify-auth-token", handlers.Verify)
	}

	return router
}
