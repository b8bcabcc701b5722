package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 signing key",
		Long:  "Generates an Ed25519 key pair, writes the hex seed to --out and prints the public key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			seed := hex.EncodeToString(priv.Seed())
			if err := os.WriteFile(out, []byte(seed+"\n"), 0o600); err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public key: %s\n", hex.EncodeToString(pub))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "signed-doc.key", "file to write the hex-encoded key seed to")
	return cmd
}

// loadPrivateKey reads a hex seed file written by keygen.
func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key %s: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key %s: want %d seed bytes, got %d", path, ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
