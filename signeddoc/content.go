package signeddoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/fxamacker/cbor/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ContentType names the decoded shape of a document payload.
type ContentType string

const (
	ContentTypeJSON       ContentType = "application/json"
	ContentTypeSchemaJSON ContentType = "application/schema+json"
	ContentTypeCBOR       ContentType = "application/cbor"
)

// ParseContentType validates a media type against the supported set.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentTypeJSON, ContentTypeSchemaJSON, ContentTypeCBOR:
		return ContentType(s), nil
	}
	return "", fmt.Errorf("unsupported content type %q", s)
}

// ContentEncoding names the transport encoding of a document payload.
type ContentEncoding string

const (
	EncodingIdentity ContentEncoding = "identity"
	EncodingBrotli   ContentEncoding = "br"
)

// ParseContentEncoding validates an encoding token against the supported set.
func ParseContentEncoding(s string) (ContentEncoding, error) {
	switch ContentEncoding(s) {
	case EncodingIdentity, EncodingBrotli:
		return ContentEncoding(s), nil
	}
	return "", fmt.Errorf("unsupported content encoding %q", s)
}

// DefaultDecompressLimit bounds the decompressed payload size.
const DefaultDecompressLimit = 16 << 20 // 16 MiB

// Payload carries both the transport bytes (post content-encoding, exactly
// as they travel inside the COSE envelope) and the decoded inner bytes.
type Payload struct {
	Raw     []byte
	Decoded []byte
}

// IsEmpty reports whether the payload has no transport bytes.
func (p Payload) IsEmpty() bool { return len(p.Raw) == 0 }

// encodeContent applies the content encoding to inner payload bytes.
func encodeContent(inner []byte, encoding ContentEncoding) ([]byte, error) {
	switch encoding {
	case "", EncodingIdentity:
		return inner, nil
	case EncodingBrotli:
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(inner); err != nil {
			return nil, fmt.Errorf("brotli compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli compress: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported content encoding %q", encoding)
}

// decodePayload reverses the content encoding and parses the inner bytes per
// the content type. Defects go to the report; the returned payload keeps the
// transport bytes either way, and Decoded stays empty past a fatal decode
// defect so downstream rules still run.
func decodePayload(raw []byte, ct ContentType, enc ContentEncoding, limit int64, report *Report) Payload {
	const context = "payload decoding"
	p := Payload{Raw: raw}
	if len(raw) == 0 {
		return p
	}
	if limit <= 0 {
		limit = DefaultDecompressLimit
	}

	inner := raw
	if enc == EncodingBrotli {
		// Read one byte past the limit so overflow is distinguishable
		// from an exact fit.
		r := io.LimitReader(brotli.NewReader(bytes.NewReader(raw)), limit+1)
		out, err := io.ReadAll(r)
		if err != nil {
			report.InvalidEncoding("payload", fmt.Sprintf("brotli: %v", err), context)
			return p
		}
		if int64(len(out)) > limit {
			report.InvalidEncoding("payload", fmt.Sprintf("decompressed size exceeds %d byte limit", limit), context)
			return p
		}
		inner = out
	}
	p.Decoded = inner

	switch ct {
	case ContentTypeJSON:
		if !json.Valid(inner) {
			report.InvalidEncoding("payload", "not valid JSON", context)
		}
	case ContentTypeSchemaJSON:
		if err := checkJSONSchema(inner); err != nil {
			report.InvalidEncoding("payload", fmt.Sprintf("not a valid JSON Schema: %v", err), context)
		}
	case ContentTypeCBOR:
		if err := cbor.Wellformed(inner); err != nil {
			report.InvalidEncoding("payload", fmt.Sprintf("not well-formed CBOR: %v", err), context)
		}
	default:
		// Unknown content type was already reported by the metadata codec;
		// leave the bytes as-is.
	}
	return p
}

// checkJSONSchema verifies that data parses as a JSON Schema draft 2020-12
// document.
func checkJSONSchema(data []byte) error {
	_, err := CompileSchema(data)
	return err
}

// CompileSchema compiles raw JSON into a draft 2020-12 schema.
func CompileSchema(data []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	const url = "schema.json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}
