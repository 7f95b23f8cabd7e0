package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/fhir-gateway-service/internal/auth"
)

// CreateTestVerifier creates a verifier configured for testing
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	// Test JWKS that will accept our test tokens
	testJWKS := auth.NewTestJWKS(publicKey)

	// Config matching the test token issuer
	cfg := auth.Config{
		Issuer: "https://test-keycloak.com/realms/test",
	}

	verifier := auth.NewVerifier(cfg, testJWKS)

	return verifier, privateKey
}
