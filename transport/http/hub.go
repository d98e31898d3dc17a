package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/api"
	"github.com/pipfun/walletlink/adapters/browser"
	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/adapters/provider"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/internal/metrics"
	"github.com/pipfun/walletlink/ports"
	"github.com/pipfun/walletlink/service"
)

var (
	// ErrNotLoaded is returned for a client that has no live page
	ErrNotLoaded        = errors.New("page not loaded")
	ErrOriginNotAllowed = errors.New("page origin not allowed")
)

// HubConfig wires the per-client application contexts
type HubConfig struct {
	// AppURL restricts loads to this origin when set
	AppURL  string
	API     *api.Client
	Encoder deeplink.Encoder
	// Stores returns the durable storage of one client
	Stores func(clientID string) ports.Store
	// Events returns the publisher of one client
	Events func(clientID string) ports.EventPublisher
	// Wallets are injected into every client's environment, keyed by path
	Wallets map[string]ports.InjectedWallet

	ExtendThreshold time.Duration
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// App is one client's page load: the page, its session and the signing workflows
type App struct {
	mu        sync.Mutex
	Page      *browser.Page
	Session   *service.SessionStore
	Workflows *service.Workflows
	// Inbound is the error from handling the deep-link response of this load, if any
	Inbound error
}

// Hub keeps the live App of every client. A load replaces the client's App; a
// navigation to the wallet app ends it.
type Hub struct {
	cfg    HubConfig
	origin *url.URL
	logger *zap.Logger

	mu   sync.Mutex
	apps map[string]*App
}

// NewHub creates a hub
func NewHub(cfg HubConfig) (*Hub, error) {
	h := &Hub{
		cfg:    cfg,
		logger: logger.OrNop(cfg.Logger).Named("hub"),
		apps:   make(map[string]*App),
	}
	if cfg.AppURL != "" {
		u, err := url.Parse(cfg.AppURL)
		if err != nil {
			return nil, fmt.Errorf("invalid app url: %w", err)
		}
		h.origin = u
	}
	h.cfg.Metrics = metrics.OrDefault(cfg.Metrics)
	return h, nil
}

// Load starts a new page load for clientID at rawURL and runs startup. A failed
// deep-link response is recorded on App.Inbound; the App is usable either way.
func (h *Hub) Load(ctx context.Context, clientID, rawURL, userAgent string) (*App, error) {
	page, err := browser.NewPage(rawURL)
	if err != nil {
		return nil, err
	}
	if h.origin != nil {
		loc := page.Location()
		if loc.Scheme != h.origin.Scheme || loc.Host != h.origin.Host {
			return nil, fmt.Errorf("%w: %s://%s", ErrOriginNotAllowed, loc.Scheme, loc.Host)
		}
	}

	app := h.build(clientID, page, userAgent)
	app.mu.Lock()
	defer app.mu.Unlock()

	h.mu.Lock()
	h.apps[clientID] = app
	h.mu.Unlock()

	app.Inbound = app.Session.Startup(ctx)
	if app.Inbound != nil {
		h.logger.Debug("inbound response not applied", zap.String("client", clientID), zap.Error(app.Inbound))
	}
	return app, nil
}

func (h *Hub) build(clientID string, page *browser.Page, userAgent string) *App {
	store := h.cfg.Stores(clientID)
	log := h.logger.With(zap.String("client", clientID))
	keys := service.NewKeyStore(store, log)

	env := browser.Environment{Agent: userAgent, Wallets: h.cfg.Wallets}
	registry := provider.NewRegistry(env, func() ports.Provider {
		return provider.NewPhantomDeepLink(keys, store, page, h.cfg.Encoder, log)
	}, log)

	client := h.cfg.API.WithStore(store)
	var events ports.EventPublisher
	if h.cfg.Events != nil {
		events = h.cfg.Events(clientID)
	}

	session := service.NewSessionStore(service.SessionConfig{
		Store:           store,
		Resolver:        registry,
		Auth:            client,
		Env:             env,
		Page:            page,
		Keys:            keys,
		Events:          events,
		Metrics:         h.cfg.Metrics,
		Logger:          log,
		ExtendThreshold: h.cfg.ExtendThreshold,
	})
	correlator := service.NewCorrelator(session, h.cfg.Metrics, log)

	return &App{
		Page:      page,
		Session:   session,
		Workflows: service.NewWorkflows(session, correlator, client, log),
	}
}

// Do runs fn against the live App of clientID. When fn navigated away the App is
// dropped and the navigation target returned.
func (h *Hub) Do(clientID string, fn func(app *App) error) (navigateURL string, err error) {
	h.mu.Lock()
	app, ok := h.apps[clientID]
	h.mu.Unlock()
	if !ok {
		return "", ErrNotLoaded
	}

	app.mu.Lock()
	err = fn(app)
	navigateURL = app.Page.Navigation()
	app.mu.Unlock()

	if navigateURL != "" {
		h.mu.Lock()
		if h.apps[clientID] == app {
			delete(h.apps, clientID)
		}
		h.mu.Unlock()
	}
	return navigateURL, err
}
