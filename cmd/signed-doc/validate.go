package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
	"github.com/input-output-hk/go-signed-doc/signeddoc/validator"
)

func newValidateCmd() *cobra.Command {
	var (
		docPaths []string
		keyPairs []string
		specPath string
	)
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a document against its type's rule set",
		Long: "Validates the given document. Referenced documents are resolved from the\n" +
			"files passed via --docs; signer keys from kid=pubkeyhex pairs passed via --key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []validator.Option
			if specPath != "" {
				data, err := os.ReadFile(specPath)
				if err != nil {
					return err
				}
				opts = append(opts, validator.WithSpec(data))
			}
			engine, err := validator.NewEngine(opts...)
			if err != nil {
				return err
			}

			provider := signeddoc.NewInMemoryProvider()
			for _, path := range docPaths {
				if err := loadDocument(engine, provider, path); err != nil {
					return err
				}
			}
			for _, pair := range keyPairs {
				if err := loadKey(provider, pair); err != nil {
					return err
				}
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, report := signeddoc.Decode(data, engine.DecodeOptions())
			ok, err := engine.Validate(cmd.Context(), doc, provider)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			if !ok {
				return fmt.Errorf("document %s is invalid", doc.Ref())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document %s is valid\n", doc.Ref())
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&docPaths, "docs", nil, "referenced document files")
	cmd.Flags().StringArrayVar(&keyPairs, "key", nil, "verification key as kid=pubkeyhex")
	cmd.Flags().StringVar(&specPath, "spec", "", "alternative document spec JSON")
	return cmd
}

func loadDocument(engine *validator.Engine, provider *signeddoc.InMemoryProvider, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, report := signeddoc.Decode(data, engine.DecodeOptions())
	if report.IsProblematic() {
		return fmt.Errorf("referenced document %s:\n%s", path, report)
	}
	provider.AddDocument(doc)
	return nil
}

func loadKey(provider *signeddoc.InMemoryProvider, pair string) error {
	kidStr, keyHex, ok := strings.Cut(pair, "=")
	if !ok {
		return fmt.Errorf("key %q: want kid=pubkeyhex", pair)
	}
	kid, err := signeddoc.ParseCatalystID(kidStr)
	if err != nil {
		return err
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("key for %s: %w", kid, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("key for %s: want %d bytes, got %d", kid, ed25519.PublicKeySize, len(key))
	}
	provider.AddKey(kid, ed25519.PublicKey(key))
	return nil
}
