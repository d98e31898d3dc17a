package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/adapters/tokenizer"
	"github.com/pipfun/walletlink/internal/config"
	"github.com/pipfun/walletlink/ports"
	"github.com/pipfun/walletlink/service"
	transport "github.com/pipfun/walletlink/transport/http"
)

// NewAuthDevCmd creates the development auth server command
func NewAuthDevCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "auth-dev",
		Short: "Run a development auth server",
		Long:  "Serves auth/issue-auth-token, auth/extend-auth-token and auth/verify-auth-token for local development.",
		RunE:  runAuthDev,
	}

	cmd.Flags().String("listen", ":9000", "Listen address")
	cmd.Flags().String("key-file", "", "PEM encoded P-256 signing key; a fresh key is generated when empty")

	return cmd
}

func runAuthDev(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keyFile, _ := cmd.Flags().GetString("key-file")
	signKey, err := loadSigningKey(keyFile, log)
	if err != nil {
		return err
	}

	var revocations ports.Store
	switch cfg.Store {
	case config.StoreRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		revocations = store.NewRedisStore(client, "auth-dev")
	case config.StoreLevelDB:
		db, err := store.OpenLevelDBStore(cfg.LevelDBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		revocations = store.Namespace(db, "auth-dev")
	default:
		revocations = store.NewMemoryStore()
	}

	if cfg.BypassSignatureEnabled {
		log.Warn("bypass signature accepted; do not expose this server")
	}
	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		revocations,
		cfg.AuthTokenTTL,
		cfg.BypassSignatureEnabled,
		log,
	)

	gin.SetMode(gin.ReleaseMode)
	listenAddr, _ := cmd.Flags().GetString("listen")
	return listen(ctx, listenAddr, transport.SetupAuthRouter(authService, cfg.APIVersion, log), log)
}

func loadSigningKey(path string, log *zap.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		log.Info("generating ephemeral token signing key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM data in %s", path)
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key must be a P-256 ECDSA key")
	}
	return key, nil
}
