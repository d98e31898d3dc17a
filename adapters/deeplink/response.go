package deeplink

import (
	"fmt"
	"net/url"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
)

// Response is a validated inbound deep-link response
type Response struct {
	Action          core.Action
	WalletPublicKey string
	Nonce           string
	Data            string
	ErrorCode       string
	ErrorMessage    string
	Context         string
}

// Failed reports whether the wallet answered with an error
func (r *Response) Failed() bool {
	return r.ErrorCode != ""
}

// Err returns the wallet error, or nil for a successful response
func (r *Response) Err() error {
	if !r.Failed() {
		return nil
	}
	return &core.WalletError{Action: r.Action, Code: r.ErrorCode, Message: r.ErrorMessage}
}

// Present reports whether u carries a deep-link response
func Present(u *url.URL) bool {
	return u != nil && u.Query().Has(ParamAction)
}

// Parse validates the query of u against the schema of its action.
// It returns core.ErrNoAction when u is not a deep-link return and core.ErrUnknownAction
// for an action outside the schema. The returned Response is non-nil whenever an action is present.
func Parse(u *url.URL) (*Response, error) {
	if !Present(u) {
		return nil, core.ErrNoAction
	}
	q := u.Query()

	resp := &Response{
		Action:          core.Action(q.Get(ParamAction)),
		WalletPublicKey: q.Get(ParamWalletPublicKey),
		Nonce:           q.Get(ParamNonce),
		Data:            q.Get(ParamData),
		ErrorCode:       q.Get(ParamErrorCode),
		ErrorMessage:    q.Get(ParamErrorMessage),
	}

	r, ok := schema[resp.Action]
	if !ok {
		return resp, fmt.Errorf("%w: %q", core.ErrUnknownAction, resp.Action)
	}
	for _, name := range r.optional {
		if name == ParamContext {
			resp.Context = q.Get(ParamContext)
		}
	}

	if resp.Failed() {
		return resp, nil
	}

	for _, name := range r.required {
		if q.Get(name) == "" {
			return resp, fmt.Errorf("%w: %s for %s", core.ErrMissingParam, name, resp.Action)
		}
	}

	return resp, nil
}

// Envelope decodes the base58 nonce and data
func (r *Response) Envelope() (crypto.Envelope, error) {
	nonce, err := crypto.DecodeNonce(r.Nonce)
	if err != nil {
		return crypto.Envelope{}, fmt.Errorf("%w: nonce: %v", core.ErrMalformedPayload, err)
	}
	data, err := crypto.DecodeBase58(r.Data)
	if err != nil {
		return crypto.Envelope{}, fmt.Errorf("%w: data: %v", core.ErrMalformedPayload, err)
	}
	return crypto.Envelope{Nonce: nonce, Payload: data}, nil
}

// Decode decrypts the response data under shared into v
func (r *Response) Decode(shared [crypto.KeySize]byte, v any) error {
	env, err := r.Envelope()
	if err != nil {
		return err
	}
	return crypto.OpenJSON(env, shared, v)
}

// Strip returns a copy of u without any protocol parameter
func Strip(u *url.URL) *url.URL {
	out := *u
	q := out.Query()
	for _, name := range ProtocolParams {
		q.Del(name)
	}
	out.RawQuery = q.Encode()
	return &out
}
