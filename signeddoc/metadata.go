package signeddoc

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// COSE-standard integer labels used in the protected header.
const (
	labelAlg         = int64(1)
	labelContentType = int64(3)
)

// algEdDSA is the COSE algorithm identifier for EdDSA (Ed25519 here).
const algEdDSA = int64(-8)

// CoAP numeric content formats accepted on decode for compatibility.
const (
	coapFormatJSON = uint64(50)
	coapFormatCBOR = uint64(60)
)

// RefKind names a metadata field holding document references.
type RefKind string

const (
	RefKindRef        RefKind = "ref"
	RefKindTemplate   RefKind = "template"
	RefKindReply      RefKind = "reply"
	RefKindParameters RefKind = "parameters"
)

// RefKinds lists the reference fields in their rule-execution order.
var RefKinds = []RefKind{RefKindRef, RefKindTemplate, RefKindReply, RefKindParameters}

// Metadata is the decoded COSE protected header of a signed document.
//
// The algorithm label is fixed at EdDSA and not carried here; the codec
// writes it on encode and checks it on decode.
type Metadata struct {
	// Type selects the document's rule-set.
	Type UUIDv4
	// ID and Ver identify the document; the first version has Ver == ID.
	ID  UUIDv7
	Ver UUIDv7

	ContentType     ContentType
	ContentEncoding ContentEncoding // empty when absent

	Ref        []DocumentRef
	Template   []DocumentRef
	Reply      []DocumentRef
	Parameters []DocumentRef

	Chain         *Chain
	Collaborators []string
	Revocations   []UUIDv7

	// Extra preserves unrecognized keys byte-for-byte. They are reported
	// informationally on decode and re-emitted on encode.
	Extra map[string]cbor.RawMessage
}

// Refs returns the references stored under the given field.
func (m *Metadata) Refs(kind RefKind) []DocumentRef {
	switch kind {
	case RefKindRef:
		return m.Ref
	case RefKindTemplate:
		return m.Template
	case RefKindReply:
		return m.Reply
	case RefKindParameters:
		return m.Parameters
	}
	return nil
}

func (m *Metadata) setRefs(kind RefKind, refs []DocumentRef) {
	switch kind {
	case RefKindRef:
		m.Ref = refs
	case RefKindTemplate:
		m.Template = refs
	case RefKindReply:
		m.Reply = refs
	case RefKindParameters:
		m.Parameters = refs
	}
}

// EncodeMetadata emits the canonical CBOR protected-header map: definite
// length, shortest integers, keys sorted by their encoded form.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	out := map[any]cbor.RawMessage{}
	put := func(key any, value any) error {
		raw, err := canonicalEncMode.Marshal(value)
		if err != nil {
			return fmt.Errorf("metadata %v: %w", key, err)
		}
		out[key] = raw
		return nil
	}

	if err := put(labelAlg, algEdDSA); err != nil {
		return nil, err
	}
	if err := put(labelContentType, string(m.ContentType)); err != nil {
		return nil, err
	}
	if err := put("type", m.Type); err != nil {
		return nil, err
	}
	if err := put("id", m.ID); err != nil {
		return nil, err
	}
	if err := put("ver", m.Ver); err != nil {
		return nil, err
	}
	if m.ContentEncoding != "" {
		if err := put("content-encoding", string(m.ContentEncoding)); err != nil {
			return nil, err
		}
	}
	for _, kind := range RefKinds {
		refs := m.Refs(kind)
		if len(refs) == 0 {
			continue
		}
		var err error
		if len(refs) == 1 {
			err = put(string(kind), refs[0])
		} else {
			err = put(string(kind), refs)
		}
		if err != nil {
			return nil, err
		}
	}
	if m.Chain != nil {
		if err := put("chain", *m.Chain); err != nil {
			return nil, err
		}
	}
	if len(m.Collaborators) > 0 {
		if err := put("collaborators", m.Collaborators); err != nil {
			return nil, err
		}
	}
	if len(m.Revocations) > 0 {
		if err := put("revocations", m.Revocations); err != nil {
			return nil, err
		}
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return canonicalEncMode.Marshal(out)
}

// DecodeMetadata parses the protected-header map, recording every defect and
// substituting zero sentinels so decoding always yields a usable value.
// Non-canonical but well-formed input is flagged, not rejected.
func DecodeMetadata(data []byte, report *Report) Metadata {
	const context = "metadata decoding"
	var m Metadata

	fields, ok := decodeHeaderMap(data, report, context)
	if !ok {
		report.MissingField("type", context)
		report.MissingField("id", context)
		report.MissingField("ver", context)
		report.MissingField("content-type", context)
		return m
	}
	before := report.Len()

	decodeAlg(fields, report, context)
	m.ContentType = decodeContentType(fields, report, context)

	if raw, ok := fields["type"]; ok {
		if err := m.Type.UnmarshalCBOR(raw); err != nil {
			report.InvalidEncoding("type", err.Error(), context)
		}
	} else {
		report.MissingField("type", context)
	}
	if raw, ok := fields["id"]; ok {
		if err := m.ID.UnmarshalCBOR(raw); err != nil {
			report.InvalidEncoding("id", err.Error(), context)
		}
	} else {
		report.MissingField("id", context)
	}
	if raw, ok := fields["ver"]; ok {
		if err := m.Ver.UnmarshalCBOR(raw); err != nil {
			report.InvalidEncoding("ver", err.Error(), context)
		}
	} else {
		report.MissingField("ver", context)
	}
	if !m.ID.IsZero() && !m.Ver.IsZero() && m.Ver.Compare(m.ID) < 0 {
		report.InvalidValue("ver", m.Ver.String(),
			fmt.Sprintf("must not precede document id %s", m.ID), context)
	}

	if raw, ok := fields["content-encoding"]; ok {
		var s string
		if err := cbor.Unmarshal(raw, &s); err != nil {
			report.InvalidEncoding("content-encoding", err.Error(), context)
		} else if enc, err := ParseContentEncoding(s); err != nil {
			report.InvalidValue("content-encoding", s, "one of identity, br", context)
		} else {
			m.ContentEncoding = enc
		}
	}

	for _, kind := range RefKinds {
		raw, ok := fields[string(kind)]
		if !ok {
			continue
		}
		refs, err := decodeRefField(raw)
		if err != nil {
			report.InvalidEncoding(string(kind), err.Error(), context)
			continue
		}
		m.setRefs(kind, refs)
	}

	if raw, ok := fields["chain"]; ok {
		var chain Chain
		if err := chain.UnmarshalCBOR(raw); err != nil {
			report.InvalidEncoding("chain", err.Error(), context)
		} else {
			m.Chain = &chain
		}
	}
	if raw, ok := fields["collaborators"]; ok {
		if err := cbor.Unmarshal(raw, &m.Collaborators); err != nil {
			report.InvalidEncoding("collaborators", err.Error(), context)
		}
	}
	if raw, ok := fields["revocations"]; ok {
		if err := cbor.Unmarshal(raw, &m.Revocations); err != nil {
			report.InvalidEncoding("revocations", err.Error(), context)
		}
	}

	for key, raw := range fields {
		name, isString := key.(string)
		if !isString {
			continue // integer labels were handled above
		}
		if knownMetadataKey(name) {
			continue
		}
		if m.Extra == nil {
			m.Extra = map[string]cbor.RawMessage{}
		}
		m.Extra[name] = raw
		report.Info(name, fmt.Sprintf("%d bytes", len(raw)), "unknown metadata key preserved")
	}

	// A clean decode that does not re-encode to the same bytes means the
	// input deviated from canonical form.
	if report.Len() == before {
		if reencoded, err := EncodeMetadata(&m); err == nil && !bytes.Equal(reencoded, data) {
			report.InvalidEncoding("protected", "header map is not canonically encoded", context)
		}
	}
	return m
}

// decodeHeaderMap reads the raw key space, reporting duplicate keys and
// retrying leniently so the rest of the pipeline still runs.
func decodeHeaderMap(data []byte, report *Report, context string) (map[any]cbor.RawMessage, bool) {
	var fields map[any]cbor.RawMessage
	if err := strictDecMode.Unmarshal(data, &fields); err != nil {
		if _, dup := err.(*cbor.DupMapKeyError); dup {
			report.DuplicateField("protected", err.Error(), context)
			fields = nil
			if err := cbor.Unmarshal(data, &fields); err == nil {
				return fields, true
			}
		}
		report.InvalidEncoding("protected", err.Error(), context)
		return nil, false
	}
	return fields, true
}

func decodeAlg(fields map[any]cbor.RawMessage, report *Report, context string) {
	raw, ok := fields[uint64(labelAlg)]
	if !ok {
		report.MissingField("alg", context)
		return
	}
	var alg int64
	if err := cbor.Unmarshal(raw, &alg); err != nil {
		report.InvalidEncoding("alg", err.Error(), context)
		return
	}
	if alg != algEdDSA {
		report.InvalidValue("alg", fmt.Sprintf("%d", alg), fmt.Sprintf("%d (EdDSA)", algEdDSA), context)
	}
}

func decodeContentType(fields map[any]cbor.RawMessage, report *Report, context string) ContentType {
	raw, ok := fields[uint64(labelContentType)]
	if !ok {
		report.MissingField("content-type", context)
		return ""
	}
	var s string
	if err := cbor.Unmarshal(raw, &s); err == nil {
		ct, err := ParseContentType(s)
		if err != nil {
			report.InvalidValue("content-type", s,
				"one of application/json, application/schema+json, application/cbor", context)
			return ""
		}
		return ct
	}
	// CoAP numeric content formats are legacy but accepted.
	var n uint64
	if err := cbor.Unmarshal(raw, &n); err == nil {
		switch n {
		case coapFormatJSON:
			report.Info("content-type", "numeric CoAP format 50", "non-canonical content type form")
			return ContentTypeJSON
		case coapFormatCBOR:
			report.Info("content-type", "numeric CoAP format 60", "non-canonical content type form")
			return ContentTypeCBOR
		}
		report.InvalidValue("content-type", fmt.Sprintf("%d", n), "a supported media type", context)
		return ""
	}
	report.InvalidEncoding("content-type", "neither text nor unsigned integer", context)
	return ""
}

// decodeRefField accepts a single ref map or an array of ref maps.
func decodeRefField(raw cbor.RawMessage) ([]DocumentRef, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty reference field")
	}
	if major := raw[0] >> 5; major == 4 { // array
		var refs []DocumentRef
		if err := cbor.Unmarshal(raw, &refs); err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("empty reference list")
		}
		return refs, nil
	}
	var ref DocumentRef
	if err := ref.UnmarshalCBOR(raw); err != nil {
		return nil, err
	}
	return []DocumentRef{ref}, nil
}

func knownMetadataKey(name string) bool {
	switch name {
	case "type", "id", "ver", "content-encoding", "chain", "collaborators", "revocations":
		return true
	}
	for _, kind := range RefKinds {
		if name == string(kind) {
			return true
		}
	}
	return false
}
