package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedSpecParses(t *testing.T) {
	spec, err := ParseSpec(embeddedSpec)
	require.NoError(t, err)
	require.Len(t, spec.Documents, 8)
	require.Contains(t, spec.Documents, "proposal")
	require.Contains(t, spec.Documents, "brand_parameters")
}

func TestParseSpecRejectsUnknownKeys(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"signers": {"roles": ["proposer"]},
				"surprise": true
			}
		}
	}`))
	require.ErrorContains(t, err, "unknown field")
}

func TestParseSpecRejectsUnknownRole(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"signers": {"roles": ["emperor"]}
			}
		}
	}`))
	require.ErrorContains(t, err, "unknown signer role")
}

func TestParseSpecRejectsBadRequirement(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"metadata": {"ref": {"required": "maybe"}},
				"signers": {"roles": ["proposer"]}
			}
		}
	}`))
	require.ErrorContains(t, err, "bad requirement")
}

func TestParseSpecRejectsUnknownTargetDocument(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"metadata": {"ref": {"required": "yes", "type": "ghost"}},
				"signers": {"roles": ["proposer"]}
			}
		}
	}`))
	require.ErrorContains(t, err, "unknown target document")
}

func TestParseSpecRejectsChainWithCollaborators(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"metadata": {
					"chain": {"required": "optional"},
					"collaborators": {"required": "optional"}
				},
				"signers": {"roles": ["proposer"]}
			}
		}
	}`))
	require.ErrorContains(t, err, "collaborators")
}

func TestParseSpecAllowsChainWhenCollaboratorsExcluded(t *testing.T) {
	spec, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"metadata": {
					"chain": {"required": "optional"},
					"collaborators": {"required": "excluded"}
				},
				"signers": {"roles": ["proposer"]}
			}
		}
	}`))
	require.NoError(t, err)
	require.NotNil(t, spec.Documents["thing"].Metadata.Chain)
}

func TestParseSpecRejectsMissingRoles(t *testing.T) {
	_, err := ParseSpec([]byte(`{
		"documents": {
			"thing": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}}
			}
		}
	}`))
	require.ErrorContains(t, err, "no signer roles")
}

func TestBuildRegistryRejectsDuplicateTypes(t *testing.T) {
	spec, err := ParseSpec([]byte(`{
		"documents": {
			"a": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"signers": {"roles": ["proposer"]}
			},
			"b": {
				"type": "7808d2ba-d511-40af-84e8-c0d1625fdfdc",
				"headers": {"content type": {"value": "application/json"}},
				"signers": {"roles": ["proposer"]}
			}
		}
	}`))
	require.NoError(t, err)
	_, err = buildRegistry(spec, DefaultLimits())
	require.ErrorContains(t, err, "share type")
}

func TestStringListAcceptsBothForms(t *testing.T) {
	var l StringList
	require.NoError(t, l.UnmarshalJSON([]byte(`"one"`)))
	require.Equal(t, StringList{"one"}, l)
	require.NoError(t, l.UnmarshalJSON([]byte(`["a","b"]`)))
	require.Equal(t, StringList{"a", "b"}, l)
	require.Error(t, l.UnmarshalJSON([]byte(`7`)))
}
