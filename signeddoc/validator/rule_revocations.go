package validator

import (
	"context"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// RevocationsRule checks that every revoked version belongs to this
// document's own history: not before the document id, not after the version
// doing the revoking.
type RevocationsRule struct {
	Policy Requirement
}

func (r RevocationsRule) Check(_ context.Context, doc *signeddoc.Document, _ signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	const context = "revocations rule"
	before := report.Len()

	revs := doc.Metadata.Revocations
	if len(revs) == 0 {
		if r.Policy == Required {
			report.MissingField("revocations", context)
		}
		return report.Len() == before, nil
	}
	if r.Policy == Excluded {
		report.InvalidValue("revocations", fmt.Sprintf("%d entries", len(revs)),
			"field must be absent", context)
		return false, nil
	}

	seen := map[signeddoc.UUIDv7]bool{}
	for _, rev := range revs {
		if seen[rev] {
			report.DuplicateField("revocations", rev.String(), context)
			continue
		}
		seen[rev] = true
		if rev.Compare(doc.Metadata.ID) < 0 {
			report.InvalidValue("revocations", rev.String(),
				fmt.Sprintf("a version at or after document id %s", doc.Metadata.ID), context)
		}
		if rev.Compare(doc.Metadata.Ver) > 0 {
			report.InvalidValue("revocations", rev.String(),
				fmt.Sprintf("a version at or before %s", doc.Metadata.Ver), context)
		}
	}
	return report.Len() == before, nil
}
