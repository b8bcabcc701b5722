package validator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

//go:embed spec/signed_doc.json
var embeddedSpec []byte

// Spec is the machine-readable catalogue of document types: for each type,
// its header constraints, metadata field policies, payload schema and signer
// policy. The rule registry is compiled from it at engine construction.
type Spec struct {
	Documents map[string]*DocumentSpec `json:"documents"`
}

// DocumentSpec describes one document type.
type DocumentSpec struct {
	Type     string       `json:"type"`
	Headers  HeaderSpec   `json:"headers"`
	Metadata MetadataSpec `json:"metadata"`
	Payload  *PayloadSpec `json:"payload,omitempty"`
	Signers  SignerSpec   `json:"signers"`
}

// HeaderSpec constrains the COSE protected header values.
type HeaderSpec struct {
	ContentType     ValueSpec     `json:"content type"`
	ContentEncoding *EncodingSpec `json:"content-encoding,omitempty"`
}

// ValueSpec pins a header to one exact value.
type ValueSpec struct {
	Value string `json:"value"`
}

// EncodingSpec is the content-encoding policy.
type EncodingSpec struct {
	Required Requirement `json:"required,omitempty"`
	Allowed  []string    `json:"allowed,omitempty"`
}

// MetadataSpec holds per-field policies. An absent reference field defaults
// to optional with no target constraint; an absent chain policy defaults to
// excluded, since chaining must be opted into.
type MetadataSpec struct {
	Ref           *FieldSpec `json:"ref,omitempty"`
	Template      *FieldSpec `json:"template,omitempty"`
	Reply         *FieldSpec `json:"reply,omitempty"`
	Parameters    *FieldSpec `json:"parameters,omitempty"`
	Chain         *FieldSpec `json:"chain,omitempty"`
	Collaborators *FieldSpec `json:"collaborators,omitempty"`
	Revocations   *FieldSpec `json:"revocations,omitempty"`
}

func (m *MetadataSpec) refField(kind signeddoc.RefKind) *FieldSpec {
	switch kind {
	case signeddoc.RefKindRef:
		return m.Ref
	case signeddoc.RefKindTemplate:
		return m.Template
	case signeddoc.RefKindReply:
		return m.Reply
	case signeddoc.RefKindParameters:
		return m.Parameters
	}
	return nil
}

// FieldSpec is one metadata field's policy. Type lists the document-type
// names a reference field's targets may carry.
type FieldSpec struct {
	Required Requirement `json:"required,omitempty"`
	Type     StringList  `json:"type,omitempty"`
	Multiple bool        `json:"multiple,omitempty"`
}

func (f *FieldSpec) policy(fallback Requirement) Requirement {
	if f == nil || f.Required == "" {
		return fallback
	}
	return f.Required
}

// StringList accepts both a bare string and an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = StringList(many)
	return nil
}

// PayloadSpec carries the document type's static payload schema inline.
type PayloadSpec struct {
	Schema json.RawMessage `json:"schema,omitempty"`
}

// SignerSpec names the roles admitted to sign and whether referenced-document
// collaborators may co-sign.
type SignerSpec struct {
	Roles              []string `json:"roles"`
	AllowCollaborators bool     `json:"allow_collaborators,omitempty"`
}

var roleNames = map[string]signeddoc.Role{
	"voter":                    signeddoc.RoleVoter,
	"delegated_representative": signeddoc.RoleDelegatedRepresentative,
	"proposer":                 signeddoc.RoleProposer,
	"root_ca":                  signeddoc.RoleRootCA,
	"brand_ca":                 signeddoc.RoleBrandCA,
	"campaign_ca":              signeddoc.RoleCampaignCA,
	"category_ca":              signeddoc.RoleCategoryCA,
	"root_admin":               signeddoc.RoleRootAdmin,
	"brand_admin":              signeddoc.RoleBrandAdmin,
	"campaign_admin":           signeddoc.RoleCampaignAdmin,
	"category_admin":           signeddoc.RoleCategoryAdmin,
	"moderator":                signeddoc.RoleModerator,
}

func (r Requirement) valid() bool {
	switch r {
	case "", Required, Optional, Excluded:
		return true
	}
	return false
}

// ParseSpec decodes and sanity-checks a specification document. Unknown keys
// anywhere in it are errors: a typo in the spec must fail construction, not
// silently relax a policy.
func ParseSpec(data []byte) (*Spec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parse document spec: %w", err)
	}
	if len(spec.Documents) == 0 {
		return nil, fmt.Errorf("document spec names no documents")
	}
	for _, name := range sortedNames(spec.Documents) {
		if err := checkDocumentSpec(name, spec.Documents[name], spec.Documents); err != nil {
			return nil, err
		}
	}
	return &spec, nil
}

func sortedNames(docs map[string]*DocumentSpec) []string {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkDocumentSpec(name string, ds *DocumentSpec, all map[string]*DocumentSpec) error {
	if ds == nil {
		return fmt.Errorf("document %q: empty spec", name)
	}
	if _, err := signeddoc.ParseUUIDv4(ds.Type); err != nil {
		return fmt.Errorf("document %q: type: %w", name, err)
	}
	if _, err := signeddoc.ParseContentType(ds.Headers.ContentType.Value); err != nil {
		return fmt.Errorf("document %q: content type: %w", name, err)
	}
	if enc := ds.Headers.ContentEncoding; enc != nil {
		if !enc.Required.valid() {
			return fmt.Errorf("document %q: content-encoding: bad requirement %q", name, enc.Required)
		}
		for _, a := range enc.Allowed {
			if _, err := signeddoc.ParseContentEncoding(a); err != nil {
				return fmt.Errorf("document %q: content-encoding: %w", name, err)
			}
		}
	}
	fields := map[string]*FieldSpec{
		"ref": ds.Metadata.Ref, "template": ds.Metadata.Template,
		"reply": ds.Metadata.Reply, "parameters": ds.Metadata.Parameters,
		"chain": ds.Metadata.Chain, "collaborators": ds.Metadata.Collaborators,
		"revocations": ds.Metadata.Revocations,
	}
	for field, fs := range fields {
		if fs == nil {
			continue
		}
		if !fs.Required.valid() {
			return fmt.Errorf("document %q: %s: bad requirement %q", name, field, fs.Required)
		}
		for _, target := range fs.Type {
			if _, ok := all[target]; !ok {
				return fmt.Errorf("document %q: %s: unknown target document %q", name, field, target)
			}
		}
	}
	// A chained document's signer set must stay fixed, so chaining and
	// collaborator co-signing cannot be combined.
	if ds.Metadata.Chain.policy(Excluded) != Excluded &&
		(ds.Signers.AllowCollaborators || ds.Metadata.Collaborators.policy(Optional) != Excluded) {
		return fmt.Errorf("document %q: chain requires collaborators to be excluded", name)
	}
	if len(ds.Signers.Roles) == 0 {
		return fmt.Errorf("document %q: no signer roles", name)
	}
	for _, role := range ds.Signers.Roles {
		if _, ok := roleNames[role]; !ok {
			return fmt.Errorf("document %q: unknown signer role %q", name, role)
		}
	}
	if ds.Payload != nil && len(ds.Payload.Schema) > 0 {
		if _, err := signeddoc.CompileSchema(ds.Payload.Schema); err != nil {
			return fmt.Errorf("document %q: payload schema: %w", name, err)
		}
	}
	return nil
}

// buildRegistry compiles the spec into per-type rule sets. Rules within a set
// run in a fixed order: signatures first, then header checks, reference
// fields, chain, revocations, signer roles, and finally payload conformance.
func buildRegistry(spec *Spec, limits Limits) (map[signeddoc.UUIDv4]*RuleSet, error) {
	types := map[string]signeddoc.UUIDv4{}
	for name, ds := range spec.Documents {
		t, err := signeddoc.ParseUUIDv4(ds.Type)
		if err != nil {
			return nil, fmt.Errorf("document %q: type: %w", name, err)
		}
		types[name] = t
	}

	registry := map[signeddoc.UUIDv4]*RuleSet{}
	for _, name := range sortedNames(spec.Documents) {
		ds := spec.Documents[name]
		docType := types[name]
		if prev, dup := registry[docType]; dup {
			return nil, fmt.Errorf("documents %q and %q share type %s", prev.Name, name, docType)
		}

		rules := []Rule{
			SignaturesRule{},
			ContentTypeRule{Expected: signeddoc.ContentType(ds.Headers.ContentType.Value)},
			encodingRule(ds.Headers.ContentEncoding),
		}
		for _, kind := range signeddoc.RefKinds {
			fs := ds.Metadata.refField(kind)
			rule := RefRule{
				Kind:   kind,
				Policy: fs.policy(Optional),
				Fanout: limits.RefFanout,
			}
			if fs != nil {
				rule.Multiple = fs.Multiple
				for _, target := range fs.Type {
					rule.TargetTypes = append(rule.TargetTypes, types[target])
				}
			}
			rules = append(rules, rule)
		}
		rules = append(rules,
			ChainRule{Policy: ds.Metadata.Chain.policy(Excluded), Depth: limits.ChainDepth},
			RevocationsRule{Policy: ds.Metadata.Revocations.policy(Optional)},
			signerRule(ds.Signers),
		)
		if ds.Payload != nil && len(ds.Payload.Schema) > 0 {
			schema, err := signeddoc.CompileSchema(ds.Payload.Schema)
			if err != nil {
				return nil, fmt.Errorf("document %q: payload schema: %w", name, err)
			}
			rules = append(rules, PayloadSchemaRule{Schema: schema})
		}
		rules = append(rules,
			TemplateConformanceRule{},
			ParametersEqualityRule{Depth: limits.ChainDepth},
		)

		registry[docType] = &RuleSet{Name: name, DocType: docType, Rules: rules}
	}
	return registry, nil
}

func encodingRule(es *EncodingSpec) ContentEncodingRule {
	rule := ContentEncodingRule{Policy: Optional}
	if es == nil {
		return rule
	}
	if es.Required != "" {
		rule.Policy = es.Required
	}
	for _, a := range es.Allowed {
		rule.Allowed = append(rule.Allowed, signeddoc.ContentEncoding(a))
	}
	return rule
}

func signerRule(ss SignerSpec) SignerRoleRule {
	rule := SignerRoleRule{AllowCollaborators: ss.AllowCollaborators}
	for _, name := range ss.Roles {
		rule.AllowedRoles = append(rule.AllowedRoles, roleNames[name])
	}
	return rule
}
