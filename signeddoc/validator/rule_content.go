package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// ContentTypeRule pins the payload media type to the one the document type
// declares.
type ContentTypeRule struct {
	Expected signeddoc.ContentType
}

func (r ContentTypeRule) Check(_ context.Context, doc *signeddoc.Document, _ signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	if doc.Metadata.ContentType == r.Expected {
		return true, nil
	}
	report.InvalidValue("content-type",
		string(doc.Metadata.ContentType), string(r.Expected), "content type rule")
	return false, nil
}

// ContentEncodingRule applies the document type's content-encoding policy.
type ContentEncodingRule struct {
	Policy  Requirement
	Allowed []signeddoc.ContentEncoding
}

func (r ContentEncodingRule) Check(_ context.Context, doc *signeddoc.Document, _ signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	const context = "content encoding rule"
	enc := doc.Metadata.ContentEncoding

	if enc == "" {
		if r.Policy == Required {
			report.MissingField("content-encoding", context)
			return false, nil
		}
		return true, nil
	}
	if r.Policy == Excluded {
		report.InvalidValue("content-encoding", string(enc), "no content encoding", context)
		return false, nil
	}
	if len(r.Allowed) > 0 && !r.allows(enc) {
		report.InvalidValue("content-encoding", string(enc),
			fmt.Sprintf("one of %s", r.allowedNames()), context)
		return false, nil
	}
	return true, nil
}

func (r ContentEncodingRule) allows(enc signeddoc.ContentEncoding) bool {
	for _, a := range r.Allowed {
		if enc == a {
			return true
		}
	}
	return false
}

func (r ContentEncodingRule) allowedNames() string {
	names := make([]string, len(r.Allowed))
	for i, a := range r.Allowed {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
