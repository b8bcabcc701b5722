package signeddoc

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKID(t *testing.T, role Role, user string) CatalystID {
	t.Helper()
	return CatalystID{
		Authority: AuthorityCardano,
		Role:      role,
		UserID:    user,
	}
}

// buildTestDoc builds a minimal valid proposal-shaped document and registers
// the signer key with the provider.
func buildTestDoc(t *testing.T, provider *InMemoryProvider) *Document {
	t.Helper()
	signer, pub, err := NewEd25519Signer()
	require.NoError(t, err)
	kid := testKID(t, RoleProposer, "alice")
	provider.AddKey(kid, pub)

	id := MustUUIDv7()
	doc, err := NewBuilder().
		WithMetadata(Metadata{Type: NewUUIDv4(), ID: id, Ver: id}).
		WithContent([]byte(`{"title":"hello"}`), ContentTypeJSON, EncodingIdentity).
		AddSignature(signer, kid).
		Build()
	require.NoError(t, err)
	return doc
}

func TestEnvelopeRoundTrips(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)

	raw, err := doc.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{0xd8, 0x62}, raw[:2], "envelope carries tag 98")

	decoded, report := Decode(raw, DecodeOptions{})
	require.False(t, report.IsProblematic(), "report: %s", report)
	require.Equal(t, doc.Metadata, decoded.Metadata)
	require.Equal(t, doc.Payload.Decoded, decoded.Payload.Decoded)
	require.Len(t, decoded.Signatures, 1)

	reencoded, err := decoded.Bytes()
	require.NoError(t, err)
	require.Equal(t, raw, reencoded, "canonical bytes survive a decode round trip")
}

func TestUntaggedEnvelopeIsAdvisory(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)
	raw, err := doc.Bytes()
	require.NoError(t, err)

	_, report := Decode(raw[2:], DecodeOptions{})
	require.False(t, report.IsProblematic(), "untagged input is advisory only: %s", report)
	require.NotZero(t, report.Len())
}

func TestDecodeGarbage(t *testing.T) {
	doc, report := Decode([]byte{0x01, 0x02, 0x03}, DecodeOptions{})
	require.NotNil(t, doc)
	require.True(t, report.IsProblematic())
}

func TestVerifySignaturesAccepts(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)
	require.NoError(t, doc.VerifySignatures(context.Background(), provider))
	require.False(t, doc.Report().IsProblematic())
}

func TestVerifySignaturesTamperedPayload(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)
	raw, err := doc.Bytes()
	require.NoError(t, err)

	// flip one bit inside the payload bytes
	tampered := make([]byte, len(raw))
	copy(tampered, raw)
	idx := -1
	for i := range tampered {
		if tampered[i] == '"' {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	tampered[idx] ^= 0x01

	decoded, report := Decode(tampered, DecodeOptions{})
	require.NoError(t, decoded.VerifySignatures(context.Background(), provider))
	require.True(t, report.IsProblematic())
	var invalid bool
	for _, e := range report.Entries() {
		if e.Kind == KindSignatureInvalid {
			invalid = true
		}
	}
	require.True(t, invalid, "report: %s", report)
}

func TestVerifySignaturesUnknownKey(t *testing.T) {
	doc := buildTestDoc(t, NewInMemoryProvider())

	empty := NewInMemoryProvider()
	require.NoError(t, doc.VerifySignatures(context.Background(), empty))
	require.True(t, doc.Report().IsProblematic())
	entries := doc.Report().Entries()
	require.Equal(t, KindSignatureInvalid, entries[len(entries)-1].Kind)
	require.Contains(t, entries[len(entries)-1].Found, "not resolved")
}

func TestVerifySignaturesIndependent(t *testing.T) {
	// two signers, only one key registered: one failure, one success
	signerA, pubA, err := NewEd25519Signer()
	require.NoError(t, err)
	signerB, _, err := NewEd25519Signer()
	require.NoError(t, err)

	kidA := testKID(t, RoleProposer, "alice")
	kidB := testKID(t, RoleProposer, "bob")
	provider := NewInMemoryProvider()
	provider.AddKey(kidA, pubA)

	id := MustUUIDv7()
	doc, err := NewBuilder().
		WithMetadata(Metadata{Type: NewUUIDv4(), ID: id, Ver: id}).
		WithContent([]byte(`{}`), ContentTypeJSON, EncodingIdentity).
		AddSignature(signerA, kidA).
		AddSignature(signerB, kidB).
		Build()
	require.NoError(t, err)
	require.Len(t, doc.Signatures, 2)

	require.NoError(t, doc.VerifySignatures(context.Background(), provider))
	var failures int
	for _, e := range doc.Report().Entries() {
		if e.Kind == KindSignatureInvalid {
			failures++
		}
	}
	require.Equal(t, 1, failures, "only the unresolved signer fails")
}

func TestVerifySignaturesCancelledContext(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, doc.VerifySignatures(ctx, provider))
}

func TestSignatureUsesTransmittedProtectedBytes(t *testing.T) {
	provider := NewInMemoryProvider()
	doc := buildTestDoc(t, provider)
	raw, err := doc.Bytes()
	require.NoError(t, err)

	decoded, report := Decode(raw, DecodeOptions{})
	require.False(t, report.IsProblematic())
	require.NotEmpty(t, decoded.ProtectedBytes())
	require.NoError(t, decoded.VerifySignatures(context.Background(), provider))
	require.False(t, decoded.Report().IsProblematic())
}

func TestSignaturesAreIndependent(t *testing.T) {
	_, privA, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signerA1, _, err := NewEd25519SignerFromPrivate(privA)
	require.NoError(t, err)
	signerA2, _, err := NewEd25519SignerFromPrivate(privA)
	require.NoError(t, err)
	signerB, _, err := NewEd25519Signer()
	require.NoError(t, err)

	kidA := testKID(t, RoleProposer, "alice")
	kidB := testKID(t, RoleProposer, "bob")
	id := MustUUIDv7()
	meta := Metadata{Type: NewUUIDv4(), ID: id, Ver: id}
	content := []byte(`{"a":1}`)

	solo, err := NewBuilder().
		WithMetadata(meta).
		WithContent(content, ContentTypeJSON, EncodingIdentity).
		AddSignature(signerA1, kidA).
		Build()
	require.NoError(t, err)

	pair, err := NewBuilder().
		WithMetadata(meta).
		WithContent(content, ContentTypeJSON, EncodingIdentity).
		AddSignature(signerA2, kidA).
		AddSignature(signerB, kidB).
		Build()
	require.NoError(t, err)

	require.Equal(t, solo.ProtectedBytes(), pair.ProtectedBytes())
	require.Equal(t, solo.Payload.Raw, pair.Payload.Raw)
	require.Equal(t, solo.Signatures[0].Bytes, pair.Signatures[0].Bytes,
		"adding a signer does not disturb existing signatures")
}

func TestBuildIsDeterministic(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer1, _, err := NewEd25519SignerFromPrivate(priv)
	require.NoError(t, err)
	signer2, _, err := NewEd25519SignerFromPrivate(priv)
	require.NoError(t, err)

	kid := testKID(t, RoleProposer, "alice")
	id := MustUUIDv7()
	meta := Metadata{Type: NewUUIDv4(), ID: id, Ver: id}

	docA, err := NewBuilder().
		WithMetadata(meta).
		WithContent([]byte(`{"a":1}`), ContentTypeJSON, EncodingIdentity).
		AddSignature(signer1, kid).
		Build()
	require.NoError(t, err)
	docB, err := NewBuilder().
		WithMetadata(meta).
		WithContent([]byte(`{"a":1}`), ContentTypeJSON, EncodingIdentity).
		AddSignature(signer2, kid).
		Build()
	require.NoError(t, err)

	rawA, err := docA.Bytes()
	require.NoError(t, err)
	rawB, err := docB.Bytes()
	require.NoError(t, err)
	require.Equal(t, rawA, rawB, "identical inputs yield identical envelopes")
}
