package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

func newBuildCmd() *cobra.Command {
	var (
		keyPath    string
		kidStr     string
		docType    string
		idStr      string
		verStr     string
		contentSrc string
		ctStr      string
		encStr     string
		templates  []string
		refs       []string
		replies    []string
		params     []string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and sign a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := loadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			kid, err := signeddoc.ParseCatalystID(kidStr)
			if err != nil {
				return err
			}
			signer, _, err := signeddoc.NewEd25519SignerFromPrivate(priv)
			if err != nil {
				return err
			}

			meta, err := buildMetadata(docType, idStr, verStr, templates, refs, replies, params)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(contentSrc)
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}
			ct, err := signeddoc.ParseContentType(ctStr)
			if err != nil {
				return err
			}
			enc := signeddoc.EncodingIdentity
			if encStr != "" {
				if enc, err = signeddoc.ParseContentEncoding(encStr); err != nil {
					return err
				}
			}

			doc, err := signeddoc.NewBuilder().
				WithMetadata(meta).
				WithContent(content, ct, enc).
				AddSignature(signer, kid).
				Build()
			if err != nil {
				var be *signeddoc.BuildError
				if errors.As(err, &be) {
					return fmt.Errorf("invalid document:\n%s", be.Report)
				}
				return err
			}
			raw, err := doc.Bytes()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return fmt.Errorf("write document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %s (%d bytes) as %s\n", doc.Ref(), len(raw), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "signed-doc.key", "signing key seed file")
	cmd.Flags().StringVar(&kidStr, "kid", "", "signer catalyst-id URI")
	cmd.Flags().StringVar(&docType, "type", "", "document type UUID")
	cmd.Flags().StringVar(&idStr, "id", "", "document id (UUIDv7, defaults to ver)")
	cmd.Flags().StringVar(&verStr, "ver", "", "document version (UUIDv7, defaults to a fresh one)")
	cmd.Flags().StringVar(&contentSrc, "content", "", "payload file")
	cmd.Flags().StringVar(&ctStr, "content-type", string(signeddoc.ContentTypeJSON), "payload media type")
	cmd.Flags().StringVar(&encStr, "content-encoding", "", "payload encoding (identity or br)")
	cmd.Flags().StringArrayVar(&templates, "template", nil, "template reference, id[@ver]")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "document reference, id[@ver]")
	cmd.Flags().StringArrayVar(&replies, "reply", nil, "reply reference, id[@ver]")
	cmd.Flags().StringArrayVar(&params, "parameters", nil, "parameters reference, id[@ver]")
	cmd.Flags().StringVar(&out, "out", "doc.cose", "output file")
	for _, f := range []string{"kid", "type", "content"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func buildMetadata(docType, idStr, verStr string, templates, refs, replies, params []string) (signeddoc.Metadata, error) {
	var meta signeddoc.Metadata
	t, err := signeddoc.ParseUUIDv4(docType)
	if err != nil {
		return meta, fmt.Errorf("type: %w", err)
	}
	meta.Type = t

	if verStr == "" {
		ver, err := signeddoc.NewUUIDv7()
		if err != nil {
			return meta, err
		}
		meta.Ver = ver
	} else if meta.Ver, err = signeddoc.ParseUUIDv7(verStr); err != nil {
		return meta, fmt.Errorf("ver: %w", err)
	}
	if idStr == "" {
		meta.ID = meta.Ver
	} else if meta.ID, err = signeddoc.ParseUUIDv7(idStr); err != nil {
		return meta, fmt.Errorf("id: %w", err)
	}

	for _, set := range []struct {
		kind signeddoc.RefKind
		in   []string
		out  *[]signeddoc.DocumentRef
	}{
		{signeddoc.RefKindRef, refs, &meta.Ref},
		{signeddoc.RefKindTemplate, templates, &meta.Template},
		{signeddoc.RefKindReply, replies, &meta.Reply},
		{signeddoc.RefKindParameters, params, &meta.Parameters},
	} {
		for _, s := range set.in {
			ref, err := parseRefArg(s)
			if err != nil {
				return meta, fmt.Errorf("%s: %w", set.kind, err)
			}
			*set.out = append(*set.out, ref)
		}
	}
	return meta, nil
}

// parseRefArg parses "id" or "id@ver" into a document reference.
func parseRefArg(s string) (signeddoc.DocumentRef, error) {
	var ref signeddoc.DocumentRef
	idPart, verPart, hasVer := strings.Cut(s, "@")
	id, err := signeddoc.ParseUUIDv7(idPart)
	if err != nil {
		return ref, err
	}
	ref.ID = id
	if hasVer && verPart != "latest" {
		if ref.Ver, err = signeddoc.ParseUUIDv7(verPart); err != nil {
			return ref, err
		}
	}
	return ref, nil
}
