package auth

import (
	"context"
	"crypto/rsa"
)

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS builds a JWKS preloaded with a single key under kid
// "test-key", without any background refresh. Test tokens must be signed
// with the matching private key and carry that kid.
func NewTestJWKS(pub *rsa.PublicKey) *JWKS {
	return &JWKS{
		url:  "",
		keys: map[string]*rsa.PublicKey{"test-key": pub},
		quit: make(chan struct{}),
	}
}
