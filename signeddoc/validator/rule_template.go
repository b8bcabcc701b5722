package validator

import (
	"context"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// TemplateConformanceRule validates the payload against the schema carried by
// each referenced template document. The template's payload must itself be a
// usable schema; a template that is not is this document's defect too, since
// the document cannot be judged against it.
type TemplateConformanceRule struct{}

func (TemplateConformanceRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	before := report.Len()

	refs := doc.Metadata.Refs(signeddoc.RefKindTemplate)
	if len(refs) == 0 {
		return true, nil
	}
	if doc.Metadata.ContentType != signeddoc.ContentTypeJSON {
		return true, nil
	}

	instance, err := parseInstance(doc.Payload.Decoded)
	if err != nil {
		// Malformed JSON was already reported by the payload codec.
		return false, nil
	}

	for _, ref := range refs {
		target, err := resolveDocument(ctx, provider, ref)
		if err != nil {
			return false, err
		}
		if target == nil {
			continue // the reference rule reports unresolved targets
		}
		schema, err := signeddoc.CompileSchema(target.Payload.Decoded)
		if err != nil {
			report.RuleViolation("template",
				fmt.Sprintf("template %s payload is not a usable schema: %v", ref, err))
			continue
		}
		if err := schema.Validate(instance); err != nil {
			for _, v := range schemaViolations(err) {
				report.RuleViolation("template", fmt.Sprintf("against %s: %s", ref, v))
			}
		}
	}
	return report.Len() == before, nil
}
