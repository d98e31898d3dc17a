package deeplink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/internal/crypto"
)

// Request is one outbound wallet-app call
type Request struct {
	Action core.Action
	// Payload is encrypted for every action except connect
	Payload any
	// Context is echoed back on signAndSendTransaction redirects
	Context string
}

// Encoder builds outbound wallet-app URLs
type Encoder struct {
	// WalletAppURL is the wallet app origin, e.g. https://phantom.app
	WalletAppURL string
	// AppURL overrides the page origin sent as app_url
	AppURL  string
	Cluster string
}

// BuildURL encodes req for a page at page. walletPublic is the wallet's encryption key
// learned on connect; it is ignored for connect requests.
func (e Encoder) BuildURL(page *url.URL, keys core.KeyPair, walletPublic [crypto.KeySize]byte, req Request) (string, error) {
	if _, ok := schema[req.Action]; !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownAction, req.Action)
	}

	origin := page.Scheme + "://" + page.Host
	appURL := e.AppURL
	if appURL == "" {
		appURL = origin
	}

	redirect := RedirectLink(page, req.Action, req.Context)

	params := url.Values{}
	params.Set(ParamAppURL, appURL)
	params.Set(ParamDappPublicKey, crypto.EncodeBase58(keys.PublicKey[:]))
	params.Set(ParamRedirectLink, redirect)

	if req.Action == core.ActionConnect {
		if e.Cluster != "" {
			params.Set(ParamCluster, e.Cluster)
		}
	} else {
		env, err := crypto.Seal(req.Payload, crypto.SharedSecret(walletPublic, keys.SecretKey))
		if err != nil {
			return "", err
		}
		params.Set(ParamNonce, env.EncodeNonce())
		params.Set(ParamPayload, env.EncodePayload())
	}

	base := strings.TrimRight(e.WalletAppURL, "/")
	return fmt.Sprintf("%s/ul/%s/%s?%s", base, Version, req.Action, params.Encode()), nil
}

// RedirectLink is the URL the wallet app returns to: the page's origin and path,
// the action marker, and the context tag for sign-and-send requests
func RedirectLink(page *url.URL, action core.Action, context string) string {
	link := url.URL{Scheme: page.Scheme, Host: page.Host, Path: page.Path}
	q := url.Values{}
	q.Set(ParamAction, string(action))
	if action == core.ActionSignAndSendTransaction && context != "" {
		q.Add(ParamContext, context)
	}
	link.RawQuery = q.Encode()
	return link.String()
}
