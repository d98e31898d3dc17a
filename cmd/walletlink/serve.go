package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/api"
	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/adapters/events"
	"github.com/pipfun/walletlink/adapters/localwallet"
	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/internal/config"
	"github.com/pipfun/walletlink/internal/metrics"
	"github.com/pipfun/walletlink/ports"
	transport "github.com/pipfun/walletlink/transport/http"
)

// NewServeCmd creates the wallet host command
func NewServeCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the wallet host API",
		RunE:  runServe,
	}

	cmd.Flags().String("dev-wallet", "", "Solana keygen file exposed to every client as an injected wallet")
	cmd.Flags().String("dev-wallet-path", "phantom.solana", "Injection path of the development wallet")
	cmd.Flags().String("rpc-url", "", "Solana RPC endpoint the development wallet sends transactions to")
	cmd.Flags().Bool("secure-cookie", false, "Mark the client cookie Secure")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, publisher, closeBackends, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackends()

	wallets, err := devWallets(cmd, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub, err := transport.NewHub(transport.HubConfig{
		AppURL: cfg.AppURL,
		API: api.NewClient(cfg.APIURL, cfg.APIVersion, api.Options{
			Timeout:  15 * time.Second,
			RetryMax: 2,
		}, log),
		Encoder: deeplink.Encoder{WalletAppURL: cfg.WalletAppURL, Cluster: cfg.Cluster},
		Stores:  stores,
		Events: func(clientID string) ports.EventPublisher {
			return events.NewWatermillPublisher(publisher, clientID)
		},
		Wallets:         wallets,
		ExtendThreshold: cfg.ExtendThreshold,
		Metrics:         metrics.New(reg),
		Logger:          log,
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	secure, _ := cmd.Flags().GetBool("secure-cookie")
	router := transport.SetupRouter(hub, transport.RouterOptions{
		SecureCookie: secure,
		Gatherer:     reg,
		Logger:       log,
	})

	return listen(ctx, cfg.ListenAddr, router, log)
}

// openBackends picks the client storage and the event transport for cfg.Store
func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (func(string) ports.Store, message.Publisher, func(), error) {
	wlog := events.NewZapLogger(log)

	switch cfg.Store {
	case config.StoreRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wlog)
		if err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		stores := func(clientID string) ports.Store { return store.NewRedisStore(client, clientID) }
		return stores, publisher, func() {
			publisher.Close()
			client.Close()
		}, nil

	case config.StoreLevelDB:
		db, err := store.OpenLevelDBStore(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wlog)
		stores := func(clientID string) ports.Store { return store.Namespace(db, clientID) }
		return stores, pubSub, func() {
			pubSub.Close()
			db.Close()
		}, nil

	default:
		shared := store.NewMemoryStore()
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wlog)
		stores := func(clientID string) ports.Store { return store.Namespace(shared, clientID) }
		return stores, pubSub, func() { pubSub.Close() }, nil
	}
}

func devWallets(cmd *cobra.Command, log *zap.Logger) (map[string]ports.InjectedWallet, error) {
	path, _ := cmd.Flags().GetString("dev-wallet")
	if path == "" {
		return nil, nil
	}
	injectAt, _ := cmd.Flags().GetString("dev-wallet-path")
	rpcURL, _ := cmd.Flags().GetString("rpc-url")

	var sender localwallet.Sender
	if rpcURL != "" {
		sender = rpc.New(rpcURL)
	}
	w, err := localwallet.Load(path, sender)
	if err != nil {
		return nil, err
	}

	log.Warn("development wallet injected into every client",
		zap.String("path", injectAt),
		zap.Stringer("wallet", w.PublicKey()),
		zap.Bool("sends", sender != nil),
	)
	return map[string]ports.InjectedWallet{injectAt: w}, nil
}

func listen(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		wg.Wait()
		log.Info("server stopped")
		return nil
	}
	return fmt.Errorf("failed to start server: %w", err)
}
