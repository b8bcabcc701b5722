package validator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// fixture wires an engine, an in-memory provider and a set of signer
// identities for building document trees in tests.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	engine   *Engine
	provider *signeddoc.InMemoryProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := NewEngine()
	require.NoError(t, err)
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		engine:   engine,
		provider: signeddoc.NewInMemoryProvider(),
	}
}

type identity struct {
	signer cose.Signer
	kid    signeddoc.CatalystID
}

// identity creates a fresh signer, registers its key and returns it.
func (f *fixture) identity(role signeddoc.Role, user string) identity {
	f.t.Helper()
	signer, pub, err := signeddoc.NewEd25519Signer()
	require.NoError(f.t, err)
	kid := signeddoc.CatalystID{
		Authority: signeddoc.AuthorityCardano,
		Role:      role,
		UserID:    user,
	}
	f.provider.AddKey(kid, pub)
	return identity{signer: signer, kid: kid}
}

// build signs and registers a document.
func (f *fixture) build(meta signeddoc.Metadata, content []byte, ct signeddoc.ContentType, who identity) *signeddoc.Document {
	f.t.Helper()
	doc, err := signeddoc.NewBuilder().
		WithMetadata(meta).
		WithContent(content, ct, signeddoc.EncodingIdentity).
		AddSignature(who.signer, who.kid).
		Build()
	require.NoError(f.t, err)
	f.provider.AddDocument(doc)
	return doc
}

func newMeta(docType signeddoc.UUIDv4) signeddoc.Metadata {
	id := signeddoc.MustUUIDv7()
	return signeddoc.Metadata{Type: docType, ID: id, Ver: id}
}

// brandParams builds a brand_parameters document.
func (f *fixture) brandParams(admin identity) *signeddoc.Document {
	f.t.Helper()
	return f.build(newMeta(signeddoc.DocTypeBrandParameters),
		[]byte(`{"name":"brand"}`), signeddoc.ContentTypeJSON, admin)
}

// proposalTemplate builds a proposal_form_template carrying the given schema.
func (f *fixture) proposalTemplate(schema any, params *signeddoc.Document, admin identity) *signeddoc.Document {
	f.t.Helper()
	raw, err := json.Marshal(schema)
	require.NoError(f.t, err)
	meta := newMeta(signeddoc.DocTypeProposalFormTemplate)
	meta.Parameters = []signeddoc.DocumentRef{params.Ref()}
	return f.build(meta, raw, signeddoc.ContentTypeSchemaJSON, admin)
}

// proposal builds a proposal under the given template and parameters.
func (f *fixture) proposal(payload []byte, template, params *signeddoc.Document, who identity) *signeddoc.Document {
	f.t.Helper()
	meta := newMeta(signeddoc.DocTypeProposal)
	meta.Template = []signeddoc.DocumentRef{template.Ref()}
	meta.Parameters = []signeddoc.DocumentRef{params.Ref()}
	return f.build(meta, payload, signeddoc.ContentTypeJSON, who)
}

// titleSchema admits objects carrying a string title.
func titleSchema() map[string]any {
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"title"},
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
		},
	}
}

// validate runs the engine and returns the verdict.
func (f *fixture) validate(doc *signeddoc.Document) bool {
	f.t.Helper()
	ok, err := f.engine.Validate(f.ctx, doc, f.provider)
	require.NoError(f.t, err)
	return ok
}

func kinds(report *signeddoc.Report) map[signeddoc.EntryKind]int {
	out := map[signeddoc.EntryKind]int{}
	for _, e := range report.Entries() {
		out[e.Kind]++
	}
	return out
}

func findEntry(report *signeddoc.Report, kind signeddoc.EntryKind, path string) (signeddoc.Entry, bool) {
	for _, e := range report.Entries() {
		if e.Kind == kind && e.Path == path {
			return e, true
		}
	}
	return signeddoc.Entry{}, false
}
