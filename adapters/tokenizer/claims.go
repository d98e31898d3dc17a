package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AuthClaims are the claims of an issued auth token; the subject is the wallet address
type AuthClaims struct {
	jwt.RegisteredClaims
}
