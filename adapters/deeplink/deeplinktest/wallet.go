// Package deeplinktest simulates the wallet-app side of the deep-link round trip.
package deeplinktest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pipfun/walletlink/adapters/deeplink"
	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
)

// Wallet plays the external wallet app
type Wallet struct {
	Keys    core.KeyPair
	Address string
	Session string
}

// NewWallet creates a wallet app with a fresh encryption key pair
func NewWallet(address, session string) *Wallet {
	keys, err := crypto.GenerateKeyPair(nil)
	if err != nil {
		panic(err)
	}
	return &Wallet{Keys: keys, Address: address, Session: session}
}

// PublicKey returns the base58 encryption public key
func (w *Wallet) PublicKey() string {
	return crypto.EncodeBase58(w.Keys.PublicKey[:])
}

// Request is a decoded outbound URL
type Request struct {
	Action        core.Action
	AppURL        string
	Cluster       string
	DappPublicKey [crypto.KeySize]byte
	RedirectLink  *url.URL
	// Payload is the decrypted JSON payload, nil for connect
	Payload []byte
}

// ReadRequest decodes an outbound wallet-app URL the way the wallet app would
func (w *Wallet) ReadRequest(raw string) (*Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	prefix := "/ul/" + deeplink.Version + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return nil, fmt.Errorf("unexpected path %s", u.Path)
	}

	q := u.Query()
	req := &Request{
		Action:  core.Action(strings.TrimPrefix(u.Path, prefix)),
		AppURL:  q.Get(deeplink.ParamAppURL),
		Cluster: q.Get(deeplink.ParamCluster),
	}

	req.DappPublicKey, err = crypto.DecodeKey(q.Get(deeplink.ParamDappPublicKey))
	if err != nil {
		return nil, fmt.Errorf("dapp key: %w", err)
	}
	req.RedirectLink, err = url.Parse(q.Get(deeplink.ParamRedirectLink))
	if err != nil {
		return nil, fmt.Errorf("redirect link: %w", err)
	}

	if req.Action == core.ActionConnect {
		return req, nil
	}

	nonce, err := crypto.DecodeNonce(q.Get(deeplink.ParamNonce))
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	payload, err := crypto.DecodeBase58(q.Get(deeplink.ParamPayload))
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	shared := crypto.SharedSecret(req.DappPublicKey, w.Keys.SecretKey)
	req.Payload, err = crypto.Open(crypto.Envelope{Nonce: nonce, Payload: payload}, shared)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// DecodePayload unmarshals the decrypted request payload into v
func (r *Request) DecodePayload(v any) error {
	return json.Unmarshal(r.Payload, v)
}

// ApproveConnect returns the redirect URL of an approved connect
func (w *Wallet) ApproveConnect(req *Request) (*url.URL, error) {
	return w.respond(req, deeplink.ConnectData{PublicKey: w.Address, Session: w.Session}, true)
}

// ApproveSignature returns the redirect URL carrying signature
func (w *Wallet) ApproveSignature(req *Request, signature string) (*url.URL, error) {
	return w.respond(req, deeplink.SignatureData{Signature: signature}, false)
}

// Reject returns the redirect URL of a declined request
func (w *Wallet) Reject(req *Request, code, message string) *url.URL {
	out := *req.RedirectLink
	q := out.Query()
	q.Set(deeplink.ParamErrorCode, code)
	q.Set(deeplink.ParamErrorMessage, message)
	out.RawQuery = q.Encode()
	return &out
}

func (w *Wallet) respond(req *Request, data any, withKey bool) (*url.URL, error) {
	env, err := crypto.Seal(data, crypto.SharedSecret(req.DappPublicKey, w.Keys.SecretKey))
	if err != nil {
		return nil, err
	}
	out := *req.RedirectLink
	q := out.Query()
	if withKey {
		q.Set(deeplink.ParamWalletPublicKey, w.PublicKey())
	}
	q.Set(deeplink.ParamNonce, env.EncodeNonce())
	q.Set(deeplink.ParamData, env.EncodePayload())
	out.RawQuery = q.Encode()
	return &out, nil
}
