// Package api is the HTTP client for the platform backend: auth token issuance and
// the token pool / fee claim endpoints the signing workflows call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/logger"
	"github.com/pipfun/walletlink/ports"
)

// HeaderWalletAddress names the signer on token endpoints
const HeaderWalletAddress = "x-wallet-address"

// StatusError is a non-2xx backend response
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Options tune the underlying HTTP client
type Options struct {
	Timeout  time.Duration
	RetryMax int
}

// Client calls <api_url>/api/<version>/<endpoint>
type Client struct {
	http   *retryablehttp.Client
	base   string
	store  ports.Store
	logger *zap.Logger
}

// NewClient creates a backend client
func NewClient(apiURL, version string, opts Options, log *zap.Logger) *Client {
	log = logger.OrNop(log).Named("api")

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.Logger = leveled{log.Sugar()}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}

	if version == "" {
		version = "v1"
	}

	return &Client{
		http:   rc,
		base:   fmt.Sprintf("%s/api/%s/", strings.TrimRight(apiURL, "/"), version),
		logger: log,
	}
}

// WithStore returns a client that authenticates with the auth_token held in store
func (c *Client) WithStore(store ports.Store) *Client {
	cp := *c
	cp.store = store
	return &cp
}

type request struct {
	method   string
	endpoint string
	body     any
	token    string
	// useStoredToken attaches the auth_token from the client's store when present
	useStoredToken bool
	headers        map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, r.method, c.base+r.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	token := r.token
	if token == "" && r.useStoredToken && c.store != nil {
		stored, err := c.storedToken(ctx)
		if err != nil {
			return err
		}
		token = stored
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("unauthorized", zap.String("endpoint", r.endpoint))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.endpoint, err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
		se.Message = payload.Error
	}
	return se
}

// leveled adapts zap to retryablehttp's LeveledLogger
type leveled struct {
	s *zap.SugaredLogger
}

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

// storedToken returns the auth_token held in the client's store, or "" when it is
// missing or its auth_expiry has passed
func (c *Client) storedToken(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx, core.KeyAuthToken)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	raw, err := c.store.Get(ctx, core.KeyAuthExpiry)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	expiry, err := core.ParseExpiry(raw)
	if err != nil || !expiry.After(time.Now()) {
		c.logger.Debug("ignoring expired auth token")
		return "", nil
	}
	return token, nil
}
