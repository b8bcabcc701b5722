package validator

import (
	"context"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// ParametersEqualityRule checks that the document and every document it
// references through ref, template and reply agree on the parameters document
// they sit under. Versionless parameter refs are normalized through the
// provider before comparison.
type ParametersEqualityRule struct {
	Depth int
}

func (r ParametersEqualityRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	const context = "parameters equality rule"
	before := report.Len()

	want, ok, err := r.normalizeParameters(ctx, doc, provider, report, context)
	if err != nil {
		return false, err
	}
	if !ok {
		return report.Len() == before, nil
	}

	depth := r.Depth
	if depth <= 0 {
		depth = DefaultLimits().ChainDepth
	}
	seen := map[signeddoc.DocumentRef]bool{doc.Ref(): true}
	frontier := []*signeddoc.Document{doc}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []*signeddoc.Document
		for _, d := range frontier {
			for _, kind := range []signeddoc.RefKind{signeddoc.RefKindRef, signeddoc.RefKindTemplate, signeddoc.RefKindReply} {
				for _, ref := range d.Metadata.Refs(kind) {
					target, err := resolveDocument(ctx, provider, ref)
					if err != nil {
						return false, err
					}
					if target == nil || seen[target.Ref()] {
						continue
					}
					seen[target.Ref()] = true
					got, ok, err := r.normalizeParameters(ctx, target, provider, report, context)
					if err != nil {
						return false, err
					}
					if ok && got != want {
						report.RuleViolation("parameters",
							fmt.Sprintf("document %s sits under %s, this document under %s",
								target.Ref(), got, want))
					}
					next = append(next, target)
				}
			}
		}
		frontier = next
	}
	return report.Len() == before, nil
}

// normalizeParameters resolves a document's first parameters reference to an
// exact (id, ver) pair. ok is false when the document names no parameters or
// the reference cannot be resolved.
func (r ParametersEqualityRule) normalizeParameters(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report, context string) (signeddoc.DocumentRef, bool, error) {
	refs := doc.Metadata.Refs(signeddoc.RefKindParameters)
	if len(refs) == 0 {
		return signeddoc.DocumentRef{}, false, nil
	}
	ref := refs[0]
	if ref.HasVer() {
		return ref, true, nil
	}
	target, err := resolveDocument(ctx, provider, ref)
	if err != nil {
		return signeddoc.DocumentRef{}, false, err
	}
	if target == nil {
		report.UnresolvedReference(ref, context)
		return signeddoc.DocumentRef{}, false, nil
	}
	return target.Ref(), true, nil
}
