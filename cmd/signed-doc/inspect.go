package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a document and print its metadata and problem report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, report := signeddoc.Decode(data, signeddoc.DecodeOptions{})

			if asJSON {
				out, err := json.MarshalIndent(inspectView(doc, report), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				printInspect(cmd, doc, report)
			}
			if report.IsProblematic() {
				return fmt.Errorf("document has problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

type metadataView struct {
	Type            string   `json:"type"`
	ID              string   `json:"id"`
	Ver             string   `json:"ver"`
	ContentType     string   `json:"content_type"`
	ContentEncoding string   `json:"content_encoding,omitempty"`
	Ref             []string `json:"ref,omitempty"`
	Template        []string `json:"template,omitempty"`
	Reply           []string `json:"reply,omitempty"`
	Parameters      []string `json:"parameters,omitempty"`
	Chain           string   `json:"chain,omitempty"`
	Collaborators   []string `json:"collaborators,omitempty"`
	Revocations     []string `json:"revocations,omitempty"`
}

type documentView struct {
	Metadata    metadataView      `json:"metadata"`
	PayloadSize int               `json:"payload_size"`
	Signers     []string          `json:"signers"`
	Report      *signeddoc.Report `json:"report"`
}

func inspectView(doc *signeddoc.Document, report *signeddoc.Report) documentView {
	m := doc.Metadata
	view := documentView{
		Metadata: metadataView{
			Type:            m.Type.String(),
			ID:              m.ID.String(),
			Ver:             m.Ver.String(),
			ContentType:     string(m.ContentType),
			ContentEncoding: string(m.ContentEncoding),
			Ref:             refStrings(m.Ref),
			Template:        refStrings(m.Template),
			Reply:           refStrings(m.Reply),
			Parameters:      refStrings(m.Parameters),
			Collaborators:   m.Collaborators,
		},
		PayloadSize: len(doc.Payload.Decoded),
		Report:      report,
	}
	if m.Chain != nil {
		view.Metadata.Chain = m.Chain.String()
	}
	for _, rev := range m.Revocations {
		view.Metadata.Revocations = append(view.Metadata.Revocations, rev.String())
	}
	for _, sig := range doc.Signatures {
		view.Signers = append(view.Signers, sig.KID.String())
	}
	return view
}

func refStrings(refs []signeddoc.DocumentRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func printInspect(cmd *cobra.Command, doc *signeddoc.Document, report *signeddoc.Report) {
	w := cmd.OutOrStdout()
	m := doc.Metadata
	fmt.Fprintf(w, "type:         %s\n", m.Type)
	fmt.Fprintf(w, "id:           %s\n", m.ID)
	fmt.Fprintf(w, "ver:          %s\n", m.Ver)
	fmt.Fprintf(w, "content type: %s", m.ContentType)
	if m.ContentEncoding != "" {
		fmt.Fprintf(w, " (%s)", m.ContentEncoding)
	}
	fmt.Fprintln(w)
	for _, kind := range signeddoc.RefKinds {
		for _, ref := range m.Refs(kind) {
			fmt.Fprintf(w, "%-13s %s\n", string(kind)+":", ref)
		}
	}
	if m.Chain != nil {
		fmt.Fprintf(w, "chain:        %s\n", m.Chain)
	}
	fmt.Fprintf(w, "payload:      %d bytes\n", len(doc.Payload.Decoded))
	for _, sig := range doc.Signatures {
		fmt.Fprintf(w, "signer:       %s\n", sig.KID)
	}
	fmt.Fprintln(w, report)
}
