package signeddoc

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/veraison/go-cose"
)

// NewEd25519Signer generates a fresh Ed25519 key pair and wraps it in a COSE
// signer. Returns the signer and the public half for provider registration.
func NewEd25519Signer() (cose.Signer, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ed25519: %w", err)
	}
	signer, _, err := NewEd25519SignerFromPrivate(priv)
	if err != nil {
		return nil, nil, err
	}
	return signer, pub, nil
}

// NewEd25519SignerFromPrivate wraps an existing Ed25519 private key.
func NewEd25519SignerFromPrivate(priv ed25519.PrivateKey) (cose.Signer, ed25519.PublicKey, error) {
	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("create signer: %w", err)
	}
	return signer, priv.Public().(ed25519.PublicKey), nil
}
