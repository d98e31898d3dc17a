// Package deeplink implements the encrypted deep-link round trip with an external wallet app.
//
// Outbound requests are encoded as query parameters on https://<wallet-app>/ul/v1/<action>;
// the wallet app answers by navigating back to redirect_link with its own parameters.
package deeplink

import "github.com/pipfun/walletlink/core"

// Version is the wallet app's universal-link API version
const Version = "v1"

// Inbound query parameters
const (
	ParamAction          = "phantom_action"
	ParamWalletPublicKey = "phantom_encryption_public_key"
	ParamNonce           = "nonce"
	ParamData            = "data"
	ParamErrorCode       = "errorCode"
	ParamErrorMessage    = "errorMessage"
	ParamContext         = "context"
)

// Outbound query parameters
const (
	ParamAppURL        = "app_url"
	ParamDappPublicKey = "dapp_encryption_public_key"
	ParamRedirectLink  = "redirect_link"
	ParamPayload       = "payload"
	ParamCluster       = "cluster"
)

// ProtocolParams never survive an inbound load
var ProtocolParams = []string{
	ParamAction,
	ParamNonce,
	ParamData,
	ParamWalletPublicKey,
	ParamErrorCode,
	ParamErrorMessage,
	ParamContext,
}

type rule struct {
	required []string
	optional []string
}

// schema lists, per action, the parameters a successful response must carry
var schema = map[core.Action]rule{
	core.ActionConnect: {
		required: []string{ParamWalletPublicKey, ParamNonce, ParamData},
	},
	core.ActionSignMessage: {
		required: []string{ParamNonce, ParamData},
	},
	core.ActionSignAndSendTransaction: {
		required: []string{ParamNonce, ParamData},
		optional: []string{ParamContext},
	},
}

// ConnectData is the decrypted connect response
type ConnectData struct {
	PublicKey string `json:"public_key"`
	Session   string `json:"session"`
}

// SignatureData is the decrypted signMessage / signAndSendTransaction response
type SignatureData struct {
	Signature string `json:"signature"`
}

// SignMessagePayload is the encrypted signMessage request
type SignMessagePayload struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

// SignAndSendPayload is the encrypted signAndSendTransaction request
type SignAndSendPayload struct {
	Session     string `json:"session"`
	Transaction string `json:"transaction"`
}
