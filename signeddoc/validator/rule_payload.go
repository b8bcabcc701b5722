package validator

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// PayloadSchemaRule validates a JSON payload against the static schema the
// document type declares. Every violation is reported, each with the JSON
// Pointer of the offending instance location.
type PayloadSchemaRule struct {
	Schema *jsonschema.Schema
}

func (r PayloadSchemaRule) Check(_ context.Context, doc *signeddoc.Document, _ signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	if r.Schema == nil || len(doc.Payload.Decoded) == 0 {
		return true, nil
	}
	switch doc.Metadata.ContentType {
	case signeddoc.ContentTypeJSON, signeddoc.ContentTypeSchemaJSON:
	default:
		return true, nil
	}

	instance, err := parseInstance(doc.Payload.Decoded)
	if err != nil {
		// Malformed JSON was already reported by the payload codec.
		return false, nil
	}
	if err := r.Schema.Validate(instance); err != nil {
		for _, v := range schemaViolations(err) {
			report.RuleViolation("payload-schema", v)
		}
		return false, nil
	}
	return true, nil
}
