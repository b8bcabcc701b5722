package signeddoc

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestDocumentRefRoundTrips(t *testing.T) {
	ref := DocumentRef{ID: MustUUIDv7(), Ver: MustUUIDv7()}
	data, err := ref.MarshalCBOR()
	require.NoError(t, err)

	var decoded DocumentRef
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.Equal(t, ref, decoded)
	require.True(t, decoded.HasVer())
}

func TestDocumentRefWithoutVersion(t *testing.T) {
	ref := DocumentRef{ID: MustUUIDv7()}
	data, err := ref.MarshalCBOR()
	require.NoError(t, err)

	var m map[string]cbor.RawMessage
	require.NoError(t, cbor.Unmarshal(data, &m))
	require.Contains(t, m, "id")
	require.NotContains(t, m, "ver")

	var decoded DocumentRef
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.False(t, decoded.HasVer())
	require.Contains(t, decoded.String(), "@latest")
}

func TestDocumentRefRejectsUnknownKeys(t *testing.T) {
	id, err := MustUUIDv7().MarshalCBOR()
	require.NoError(t, err)
	data, err := canonicalEncMode.Marshal(map[string]cbor.RawMessage{
		"id":    id,
		"extra": mustMarshal(t, 1),
	})
	require.NoError(t, err)

	var ref DocumentRef
	require.ErrorContains(t, ref.UnmarshalCBOR(data), "unknown key")
}

func TestDocumentRefRequiresID(t *testing.T) {
	data, err := canonicalEncMode.Marshal(map[string]cbor.RawMessage{})
	require.NoError(t, err)
	var ref DocumentRef
	require.ErrorContains(t, ref.UnmarshalCBOR(data), "missing id")
}

func TestChainRoundTrips(t *testing.T) {
	link := DocumentRef{ID: MustUUIDv7(), Ver: MustUUIDv7()}
	chain := Chain{Height: 2, Link: &link}
	data, err := chain.MarshalCBOR()
	require.NoError(t, err)

	var decoded Chain
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.Equal(t, chain.Height, decoded.Height)
	require.NotNil(t, decoded.Link)
	require.Equal(t, link, *decoded.Link)
	require.False(t, decoded.Terminal())
	require.Equal(t, int32(2), decoded.AbsHeight())
}

func TestChainOriginAndTerminal(t *testing.T) {
	origin := Chain{Height: 0}
	data, err := origin.MarshalCBOR()
	require.NoError(t, err)
	var decoded Chain
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.Nil(t, decoded.Link)
	require.False(t, decoded.Terminal())

	terminal := Chain{Height: -3, Link: &DocumentRef{ID: MustUUIDv7(), Ver: MustUUIDv7()}}
	require.True(t, terminal.Terminal())
	require.Equal(t, int32(3), terminal.AbsHeight())
}

func TestChainRejectsUnknownKeys(t *testing.T) {
	data, err := canonicalEncMode.Marshal(map[string]cbor.RawMessage{
		"height": mustMarshal(t, 1),
		"bogus":  mustMarshal(t, true),
	})
	require.NoError(t, err)
	var chain Chain
	require.ErrorContains(t, chain.UnmarshalCBOR(data), "unknown key")
}

func mustMarshal(t *testing.T, v any) cbor.RawMessage {
	t.Helper()
	data, err := canonicalEncMode.Marshal(v)
	require.NoError(t, err)
	return data
}
