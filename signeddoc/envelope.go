package signeddoc

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// coseSignTag is the CBOR tag for a COSE_Sign structure (RFC 9052).
const coseSignTag = 98

// coseSignWire is the four-element COSE_Sign array.
type coseSignWire struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[any]cbor.RawMessage
	Payload     []byte
	Signatures  []coseSignatureWire
}

// coseSignatureWire is one COSE_Signature array entry.
type coseSignatureWire struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[any]cbor.RawMessage
	Signature   []byte
}

// sigProtected is the per-signer protected header: just the key identifier
// (COSE label 4) carrying the Catalyst identity URI bytes.
type sigProtected struct {
	KID []byte `cbor:"4,keyasint"`
}

// sigStructure is the canonical COSE Sig_structure for the multi-signer
// context. External AAD is always empty for signed documents.
type sigStructure struct {
	_             struct{} `cbor:",toarray"`
	Context       string
	BodyProtected []byte
	SignProtected []byte
	External      []byte
	Payload       []byte
}

// Signature is one detached signature of a document.
type Signature struct {
	// KID identifies the signer; zero when the header failed to decode.
	KID CatalystID
	// Protected holds the signer's protected header bytes as transmitted.
	Protected []byte
	// Bytes is the Ed25519 signature.
	Bytes []byte
}

// Document is a decoded Catalyst Signed Document: metadata, payload and
// detached signatures, plus the problem report accumulated while producing
// it. Documents are immutable once built; a new version is a new document.
type Document struct {
	Metadata   Metadata
	Payload    Payload
	Signatures []Signature

	// bodyProtected keeps the protected header bytes exactly as they were
	// transmitted; signature verification must use these, not a re-encode.
	bodyProtected []byte

	report *Report
}

// Report returns the accumulator shared by decode and validation.
func (d *Document) Report() *Report { return d.report }

// ProtectedBytes returns the transmitted protected-header bytes.
func (d *Document) ProtectedBytes() []byte { return d.bodyProtected }

// Ref returns the reference identifying this exact document version.
func (d *Document) Ref() DocumentRef {
	return DocumentRef{ID: d.Metadata.ID, Ver: d.Metadata.Ver}
}

// DecodeOptions bounds resource use during decoding.
type DecodeOptions struct {
	// DecompressLimit caps the decompressed payload size in bytes.
	// Zero means DefaultDecompressLimit.
	DecompressLimit int64
}

// Decode parses a COSE_Sign envelope. It never fails part-way: every defect
// lands in the returned report and missing pieces become zero sentinels, so
// the caller always gets a document to inspect. The verdict belongs to the
// caller via report.IsProblematic().
func Decode(data []byte, opts DecodeOptions) (*Document, *Report) {
	const context = "envelope decoding"
	report := NewReport("signed document")
	doc := &Document{report: report}

	body := data
	if len(data) >= 2 && data[0] == 0xd8 && data[1] == coseSignTag {
		body = data[2:]
	} else {
		report.Info("envelope", "untagged COSE_Sign", "expected tag 98")
	}

	var wire coseSignWire
	if err := cbor.Unmarshal(body, &wire); err != nil {
		report.InvalidEncoding("envelope", err.Error(), context)
		return doc, report
	}
	if len(wire.Unprotected) > 0 {
		report.Info("unprotected", fmt.Sprintf("%d entries", len(wire.Unprotected)),
			"body unprotected header is expected to be empty")
	}

	doc.bodyProtected = wire.Protected
	doc.Metadata = DecodeMetadata(wire.Protected, report)
	doc.Payload = decodePayload(wire.Payload, doc.Metadata.ContentType,
		doc.Metadata.ContentEncoding, opts.DecompressLimit, report)

	if len(wire.Signatures) == 0 {
		report.MissingField("signatures", context)
	}
	seen := map[string]bool{}
	for i, sig := range wire.Signatures {
		path := fmt.Sprintf("signatures[%d]", i)
		out := Signature{Protected: sig.Protected, Bytes: sig.Signature}

		var prot sigProtected
		if err := strictDecMode.Unmarshal(sig.Protected, &prot); err != nil {
			report.InvalidEncoding(path+".protected", err.Error(), context)
		} else if len(prot.KID) == 0 {
			report.MissingField(path+".kid", context)
		} else if kid, err := ParseCatalystID(string(prot.KID)); err != nil {
			report.InvalidValue(path+".kid", string(prot.KID), "a catalyst-id URI", context)
		} else {
			out.KID = kid
			if seen[kid.String()] {
				report.DuplicateField(path+".kid", fmt.Sprintf("signer %s appears more than once", kid), context)
			}
			seen[kid.String()] = true
		}
		if len(sig.Signature) != ed25519.SignatureSize {
			report.InvalidValue(path+".signature",
				fmt.Sprintf("%d bytes", len(sig.Signature)),
				fmt.Sprintf("%d bytes", ed25519.SignatureSize), context)
		}
		if len(sig.Unprotected) > 0 {
			report.Info(path+".unprotected", fmt.Sprintf("%d entries", len(sig.Unprotected)),
				"signature unprotected header is expected to be empty")
		}
		doc.Signatures = append(doc.Signatures, out)
	}
	return doc, report
}

// Bytes encodes the document canonically. For a document decoded from
// canonical bytes this reproduces them exactly.
func (d *Document) Bytes() ([]byte, error) {
	protected, err := EncodeMetadata(&d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return encodeEnvelope(protected, d.Payload.Raw, d.Signatures)
}

func encodeEnvelope(protected, payload []byte, sigs []Signature) ([]byte, error) {
	if payload == nil {
		payload = []byte{}
	}
	wire := coseSignWire{
		Protected:   protected,
		Unprotected: map[any]cbor.RawMessage{},
		Payload:     payload,
	}
	for _, sig := range sigs {
		sp, err := encodeSigProtected(sig.KID)
		if err != nil {
			return nil, err
		}
		wire.Signatures = append(wire.Signatures, coseSignatureWire{
			Protected:   sp,
			Unprotected: map[any]cbor.RawMessage{},
			Signature:   sig.Bytes,
		})
	}
	raw, err := canonicalEncMode.Marshal(cbor.Tag{Number: coseSignTag, Content: wire})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

func encodeSigProtected(kid CatalystID) ([]byte, error) {
	raw, err := canonicalEncMode.Marshal(sigProtected{KID: []byte(kid.String())})
	if err != nil {
		return nil, fmt.Errorf("encode signature header: %w", err)
	}
	return raw, nil
}

// sigStructureBytes builds the canonical to-be-signed bytes for one signer.
func sigStructureBytes(bodyProtected, signProtected, payload []byte) ([]byte, error) {
	raw, err := canonicalEncMode.Marshal(sigStructure{
		Context:       "Signature",
		BodyProtected: bodyProtected,
		SignProtected: signProtected,
		External:      []byte{},
		Payload:       payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode Sig_structure: %w", err)
	}
	return raw, nil
}

// VerifySignatures checks every signature against keys resolved through the
// provider. Failed resolutions and bad signatures become report entries;
// remaining signatures are still checked. Only provider transport failures
// and cancellation surface as errors.
func (d *Document) VerifySignatures(ctx context.Context, provider Provider) error {
	if len(d.Signatures) == 0 {
		d.report.MissingField("signatures", "signature verification")
		return nil
	}
	for _, sig := range d.Signatures {
		if sig.KID.IsZero() {
			d.report.SignatureInvalid(sig.KID, "signer identity did not decode")
			continue
		}
		key, err := provider.GetVerifyingKey(ctx, sig.KID)
		if errors.Is(err, ErrNotFound) || (err == nil && key == nil) {
			d.report.SignatureInvalid(sig.KID, "verification key not resolved")
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve key %s: %w", sig.KID, err)
		}
		tbs, err := sigStructureBytes(d.bodyProtected, sig.Protected, d.Payload.Raw)
		if err != nil {
			return err
		}
		verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, key)
		if err != nil {
			return fmt.Errorf("verifier for %s: %w", sig.KID, err)
		}
		if err := verifier.Verify(tbs, sig.Bytes); err != nil {
			d.report.SignatureInvalid(sig.KID, "signature verification failed")
		}
	}
	return nil
}
