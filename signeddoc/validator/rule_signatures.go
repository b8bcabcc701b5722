package validator

import (
	"context"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// SignaturesRule verifies every signature on the document. It runs first in
// every rule set so later rules see the signature verdicts in the report.
type SignaturesRule struct{}

func (SignaturesRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	before := report.Len()
	if err := doc.VerifySignatures(ctx, provider); err != nil {
		return false, err
	}
	return report.Len() == before, nil
}
