package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumos-api/internal/config"
	"github.com/lumos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider writes a fresh RSA key pair under t.TempDir() and loads it.
func newTestProvider(t *testing.T, expiry time.Duration) *Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		SessionMaxAge:     expiry,
	})
	require.NoError(t, err)
	return p
}

func TestSignVerify_RoundTripsClaims(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	tok := domain.Token{ID: "u1", Name: "Ada", Email: "ada@b.com", Picture: "https://img/ada.png"}

	signed, exp, err := p.Sign(tok)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, tok, claims.Token())
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerify_Expired(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, _, err := p.Sign(domain.Token{ID: "u1"})
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestVerify_OtherKey(t *testing.T) {
	signed, _, err := newTestProvider(t, time.Hour).Sign(domain.Token{ID: "u1"})
	require.NoError(t, err)

	_, err = newTestProvider(t, time.Hour).Verify(signed)
	assert.Error(t, err)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent/private.pem"})
	assert.ErrorContains(t, err, "read private key")
}
