package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// SignerRoleRule checks every signer's role against the set the document type
// admits. With AllowCollaborators set, a signer outside that set is still
// accepted when the referenced document lists its user-id as a collaborator.
type SignerRoleRule struct {
	AllowedRoles       []signeddoc.Role
	AllowCollaborators bool
}

func (r SignerRoleRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	before := report.Len()

	var collaborators map[string]bool
	if r.AllowCollaborators {
		var err error
		collaborators, err = r.collectCollaborators(ctx, doc, provider)
		if err != nil {
			return false, err
		}
	}

	for _, sig := range doc.Signatures {
		if sig.KID.IsZero() {
			continue // already reported during decoding
		}
		userID, role := sig.KID.Signer()
		if r.roleAllowed(role) {
			continue
		}
		if collaborators[userID] {
			continue
		}
		report.RuleViolation("signer-role",
			fmt.Sprintf("signer %s has role %s, want one of %s", sig.KID, role, r.roleNames()))
	}
	return report.Len() == before, nil
}

// collectCollaborators resolves the documents this one references and gathers
// the user-ids they admit as co-signers.
func (r SignerRoleRule) collectCollaborators(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider) (map[string]bool, error) {
	out := map[string]bool{}
	for _, c := range doc.Metadata.Collaborators {
		out[c] = true
	}
	for _, ref := range doc.Metadata.Refs(signeddoc.RefKindRef) {
		target, err := resolveDocument(ctx, provider, ref)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue // the reference rule reports unresolved targets
		}
		for _, c := range target.Metadata.Collaborators {
			out[c] = true
		}
	}
	return out, nil
}

func (r SignerRoleRule) roleAllowed(role signeddoc.Role) bool {
	for _, a := range r.AllowedRoles {
		if role == a {
			return true
		}
	}
	return false
}

func (r SignerRoleRule) roleNames() string {
	names := make([]string, len(r.AllowedRoles))
	for i, a := range r.AllowedRoles {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}
