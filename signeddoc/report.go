package signeddoc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntryKind classifies a single problem report entry.
type EntryKind string

const (
	KindMissingField        EntryKind = "missing"
	KindDuplicateField      EntryKind = "duplicate"
	KindInvalidValue        EntryKind = "invalid-value"
	KindInvalidEncoding     EntryKind = "invalid-encoding"
	KindUnresolvedReference EntryKind = "unresolved-reference"
	KindSignatureInvalid    EntryKind = "signature-invalid"
	KindRuleViolation       EntryKind = "rule-violation"
	KindOther               EntryKind = "other"
	// KindInfo entries never make a report problematic. Used for preserved
	// but unrecognized metadata and other advisory notes.
	KindInfo EntryKind = "informational"
)

// Entry is one recorded defect. Path addresses the offending field or rule,
// Expected/Found carry the mismatch where one exists.
type Entry struct {
	Kind     EntryKind `json:"kind"`
	Path     string    `json:"path,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Found    string    `json:"found,omitempty"`
	Context  string    `json:"context,omitempty"`
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		fmt.Fprintf(&b, " at %q", e.Path)
	}
	if e.Found != "" {
		fmt.Fprintf(&b, ", found %q", e.Found)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected %q", e.Expected)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	return b.String()
}

// Report is an append-only log of defects accumulated while decoding and
// validating one document. Every recording operation is infallible and none
// of them short-circuit: codecs and rules record and continue.
//
// A Report has a single writer, the task running the document pipeline, so
// it carries no internal locking.
type Report struct {
	context string
	entries []Entry
}

// NewReport creates an empty report with a context string that describes the
// pipeline it belongs to.
func NewReport(context string) *Report {
	return &Report{context: context}
}

// IsProblematic reports whether any recorded entry is a real defect.
// Informational entries do not count.
func (r *Report) IsProblematic() bool {
	for _, e := range r.entries {
		if e.Kind != KindInfo {
			return true
		}
	}
	return false
}

// Entries returns a copy of the recorded entries in insertion order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Report) Len() int { return len(r.entries) }

// Context returns the report's context string.
func (r *Report) Context() string { return r.context }

func (r *Report) add(e Entry) { r.entries = append(r.entries, e) }

// MissingField records an absent required field.
func (r *Report) MissingField(path, context string) {
	r.add(Entry{Kind: KindMissingField, Path: path, Context: context})
}

// DuplicateField records a field that appeared more than once.
func (r *Report) DuplicateField(key, reason, context string) {
	r.add(Entry{Kind: KindDuplicateField, Path: key, Found: reason, Context: context})
}

// InvalidValue records a well-encoded field whose value breaks a constraint.
func (r *Report) InvalidValue(path, found, expected, context string) {
	r.add(Entry{Kind: KindInvalidValue, Path: path, Found: found, Expected: expected, Context: context})
}

// InvalidEncoding records a field or payload that could not be decoded.
func (r *Report) InvalidEncoding(path, reason, context string) {
	r.add(Entry{Kind: KindInvalidEncoding, Path: path, Found: reason, Context: context})
}

// UnresolvedReference records a DocumentRef the provider could not resolve.
func (r *Report) UnresolvedReference(ref DocumentRef, context string) {
	r.add(Entry{Kind: KindUnresolvedReference, Path: ref.String(), Context: context})
}

// SignatureInvalid records a signature that failed resolution or verification.
func (r *Report) SignatureInvalid(kid CatalystID, reason string) {
	r.add(Entry{Kind: KindSignatureInvalid, Path: kid.String(), Found: reason})
}

// RuleViolation records a named rule failure.
func (r *Report) RuleViolation(name, detail string) {
	r.add(Entry{Kind: KindRuleViolation, Path: name, Context: detail})
}

// Other records an uncategorized defect. Prefer a specific kind.
func (r *Report) Other(description, context string) {
	r.add(Entry{Kind: KindOther, Found: description, Context: context})
}

// Info records an advisory entry that does not make the report problematic.
func (r *Report) Info(path, detail, context string) {
	r.add(Entry{Kind: KindInfo, Path: path, Found: detail, Context: context})
}

// Merge appends all entries of other, preserving their order.
func (r *Report) Merge(other *Report) {
	r.entries = append(r.entries, other.entries...)
}

// MarshalJSON serializes the report as a structured entry list.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Context string  `json:"context"`
		Entries []Entry `json:"entries"`
	}{Context: r.context, Entries: r.entries})
}

func (r *Report) String() string {
	if len(r.entries) == 0 {
		return r.context + ": no problems"
	}
	lines := make([]string, 0, len(r.entries)+1)
	lines = append(lines, r.context+":")
	for _, e := range r.entries {
		lines = append(lines, "  "+e.String())
	}
	return strings.Join(lines, "\n")
}
