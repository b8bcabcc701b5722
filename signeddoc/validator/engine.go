// Package validator dispatches signed documents to per-document-type rule
// sets and accumulates every defect into the document's problem report.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// Limits bounds resource use during validation. The zero value of any field
// falls back to its default.
type Limits struct {
	// DecompressLimit caps decompressed payload size in bytes.
	DecompressLimit int64
	// ChainDepth caps backward chain walks and parameters traversals.
	ChainDepth int
	// RefFanout caps how many references a single rule resolves.
	RefFanout int
}

// DefaultLimits returns the standard resource bounds.
func DefaultLimits() Limits {
	return Limits{
		DecompressLimit: signeddoc.DefaultDecompressLimit,
		ChainDepth:      64,
		RefFanout:       32,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.DecompressLimit <= 0 {
		l.DecompressLimit = d.DecompressLimit
	}
	if l.ChainDepth <= 0 {
		l.ChainDepth = d.ChainDepth
	}
	if l.RefFanout <= 0 {
		l.RefFanout = d.RefFanout
	}
	return l
}

// Requirement is the presence policy of a metadata field.
type Requirement string

const (
	Required Requirement = "yes"
	Optional Requirement = "optional"
	Excluded Requirement = "excluded"
)

// Rule is one check over a document. A false result means a defect was
// recorded; it never stops later rules. Errors are reserved for fatal
// conditions: provider transport failure and cancellation.
type Rule interface {
	Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error)
}

// RuleSet is the ordered rule collection for one document type.
type RuleSet struct {
	Name    string
	DocType signeddoc.UUIDv4
	Rules   []Rule
}

// Engine holds the immutable type-to-rule-set registry. Construct once,
// share freely: Validate keeps no engine state per call.
type Engine struct {
	limits   Limits
	registry map[signeddoc.UUIDv4]*RuleSet
}

// Option configures engine construction.
type Option func(*engineConfig)

type engineConfig struct {
	limits   Limits
	specJSON []byte
}

// WithLimits overrides the default resource bounds.
func WithLimits(l Limits) Option {
	return func(c *engineConfig) { c.limits = l }
}

// WithSpec supplies an alternative specification document in place of the
// embedded one.
func WithSpec(data []byte) Option {
	return func(c *engineConfig) { c.specJSON = data }
}

// NewEngine builds the registry from the machine-readable document spec.
// Spec defects are construction errors, not report entries.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := engineConfig{limits: DefaultLimits(), specJSON: embeddedSpec}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	spec, err := ParseSpec(cfg.specJSON)
	if err != nil {
		return nil, err
	}
	registry, err := buildRegistry(spec, cfg.limits)
	if err != nil {
		return nil, err
	}
	return &Engine{limits: cfg.limits, registry: registry}, nil
}

// Limits returns the engine's effective resource bounds.
func (e *Engine) Limits() Limits { return e.limits }

// RuleSet looks up the registered rule set for a document type.
func (e *Engine) RuleSet(t signeddoc.UUIDv4) (*RuleSet, bool) {
	rs, ok := e.registry[t]
	return rs, ok
}

// DecodeOptions returns decode options consistent with the engine limits.
func (e *Engine) DecodeOptions() signeddoc.DecodeOptions {
	return signeddoc.DecodeOptions{DecompressLimit: e.limits.DecompressLimit}
}

// Validate runs the document's rule set to completion and returns the final
// verdict: true iff the accumulated report holds no problematic entry.
// Rules run strictly in declared order and never short-circuit each other;
// the only aborts are cancellation and provider transport failure.
func (e *Engine) Validate(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider) (bool, error) {
	report := doc.Report()

	rs, ok := e.registry[doc.Metadata.Type]
	if !ok {
		report.RuleViolation("document-type",
			fmt.Sprintf("unknown document type %s", doc.Metadata.Type))
		return false, nil
	}
	for _, rule := range rs.Rules {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := rule.Check(ctx, doc, provider, report); err != nil {
			return false, err
		}
	}
	return !report.IsProblematic(), nil
}

// resolveDocument turns provider not-found into a nil document so rules can
// report it without aborting, while transport failures stay fatal.
func resolveDocument(ctx context.Context, provider signeddoc.Provider, ref signeddoc.DocumentRef) (*signeddoc.Document, error) {
	doc, err := provider.GetDocument(ctx, ref)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, signeddoc.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("resolve %s: %w", ref, err)
}
