package signeddoc

import (
	"crypto/rand"
	"fmt"

	"github.com/veraison/go-cose"
)

// BuildError carries the report of everything wrong with a build request.
type BuildError struct {
	Report *Report
}

func (e *BuildError) Error() string {
	return "document build failed: " + e.Report.String()
}

// Builder assembles a well-formed signed document. All stages are fluent and
// order-independent; mandatory pieces are enforced at Build. Building is
// deterministic: identical inputs yield byte-identical envelopes.
type Builder struct {
	meta    Metadata
	content []byte
	signers []builderSigner
}

type builderSigner struct {
	signer cose.Signer
	kid    CatalystID
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithMetadata merges the given metadata. The algorithm is implied (EdDSA)
// and content typing set through WithContent wins over what meta carries.
func (b *Builder) WithMetadata(meta Metadata) *Builder {
	ct, enc := b.meta.ContentType, b.meta.ContentEncoding
	b.meta = meta
	if ct != "" {
		b.meta.ContentType = ct
	}
	if enc != "" {
		b.meta.ContentEncoding = enc
	}
	return b
}

// WithContent sets the inner payload bytes and their content typing. The
// encoding is applied at Build.
func (b *Builder) WithContent(content []byte, ct ContentType, enc ContentEncoding) *Builder {
	b.content = content
	b.meta.ContentType = ct
	b.meta.ContentEncoding = enc
	return b
}

// AddSignature registers a signer to run at Build.
func (b *Builder) AddSignature(signer cose.Signer, kid CatalystID) *Builder {
	b.signers = append(b.signers, builderSigner{signer: signer, kid: kid})
	return b
}

// Build validates, encodes canonically, signs, and returns the decoded
// document. On invalid input it returns a *BuildError holding the report.
func (b *Builder) Build() (*Document, error) {
	const context = "document building"
	report := NewReport("document build")

	if b.meta.Type.IsZero() {
		report.MissingField("type", context)
	}
	if b.meta.ID.IsZero() {
		report.MissingField("id", context)
	}
	if b.meta.Ver.IsZero() {
		report.MissingField("ver", context)
	}
	if !b.meta.ID.IsZero() && !b.meta.Ver.IsZero() && b.meta.Ver.Compare(b.meta.ID) < 0 {
		report.InvalidValue("ver", b.meta.Ver.String(),
			fmt.Sprintf("must not precede document id %s", b.meta.ID), context)
	}
	if b.meta.ContentType == "" {
		report.MissingField("content-type", context)
	} else if _, err := ParseContentType(string(b.meta.ContentType)); err != nil {
		report.InvalidValue("content-type", string(b.meta.ContentType), "a supported media type", context)
	}
	if len(b.signers) == 0 {
		report.MissingField("signatures", context)
	}
	seen := map[string]bool{}
	for i, s := range b.signers {
		path := fmt.Sprintf("signatures[%d]", i)
		if s.kid.IsZero() {
			report.MissingField(path+".kid", context)
			continue
		}
		if s.signer == nil {
			report.MissingField(path+".signer", context)
			continue
		}
		if s.signer.Algorithm() != cose.AlgorithmEdDSA {
			report.InvalidValue(path+".alg", s.signer.Algorithm().String(), "EdDSA", context)
		}
		if seen[s.kid.String()] {
			report.DuplicateField(path+".kid", fmt.Sprintf("signer %s appears more than once", s.kid), context)
		}
		seen[s.kid.String()] = true
	}
	if report.IsProblematic() {
		return nil, &BuildError{Report: report}
	}

	payload, err := encodeContent(b.content, b.meta.ContentEncoding)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	protected, err := EncodeMetadata(&b.meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	sigs := make([]Signature, 0, len(b.signers))
	for _, s := range b.signers {
		signProt, err := encodeSigProtected(s.kid)
		if err != nil {
			return nil, err
		}
		tbs, err := sigStructureBytes(protected, signProt, payload)
		if err != nil {
			return nil, err
		}
		sig, err := s.signer.Sign(rand.Reader, tbs)
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", s.kid, err)
		}
		sigs = append(sigs, Signature{KID: s.kid, Protected: signProt, Bytes: sig})
	}

	raw, err := encodeEnvelope(protected, payload, sigs)
	if err != nil {
		return nil, err
	}

	// Decoding our own output both yields the caller a fully-populated
	// document and proves the envelope is clean.
	doc, decodeReport := Decode(raw, DecodeOptions{})
	if decodeReport.IsProblematic() {
		return nil, &BuildError{Report: decodeReport}
	}
	return doc, nil
}
