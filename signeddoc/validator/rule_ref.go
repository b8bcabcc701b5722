package validator

import (
	"context"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// RefRule applies one reference field's policy: presence, cardinality, fanout
// and the document types its targets must carry. Unresolvable targets are
// defects, not errors; every listed reference is checked.
type RefRule struct {
	Kind        signeddoc.RefKind
	Policy      Requirement
	TargetTypes []signeddoc.UUIDv4
	Multiple    bool
	Fanout      int
}

func (r RefRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	path := string(r.Kind)
	context := path + " reference rule"
	before := report.Len()

	refs := doc.Metadata.Refs(r.Kind)
	if len(refs) == 0 {
		if r.Policy == Required {
			report.MissingField(path, context)
		}
		return report.Len() == before, nil
	}
	if r.Policy == Excluded {
		report.InvalidValue(path, fmt.Sprintf("%d references", len(refs)),
			"field must be absent", context)
		return false, nil
	}
	if !r.Multiple && len(refs) > 1 {
		report.InvalidValue(path, fmt.Sprintf("%d references", len(refs)),
			"a single reference", context)
	}
	fanout := r.Fanout
	if fanout <= 0 {
		fanout = DefaultLimits().RefFanout
	}
	if len(refs) > fanout {
		report.RuleViolation(path+"-fanout",
			fmt.Sprintf("%d references exceed the fanout limit of %d", len(refs), fanout))
		refs = refs[:fanout]
	}

	for _, ref := range refs {
		target, err := resolveDocument(ctx, provider, ref)
		if err != nil {
			return false, err
		}
		if target == nil {
			report.UnresolvedReference(ref, context)
			continue
		}
		if len(r.TargetTypes) > 0 && !typeIn(target.Metadata.Type, r.TargetTypes) {
			report.InvalidValue(path, target.Metadata.Type.String(),
				"one of "+typeNames(r.TargetTypes), context)
		}
	}
	return report.Len() == before, nil
}
