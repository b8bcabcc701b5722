package signeddoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUUIDv7RoundTripsThroughCBOR(t *testing.T) {
	v := MustUUIDv7()
	data, err := v.MarshalCBOR()
	require.NoError(t, err)
	// tag 37 over a 16-byte string: d8 25 50 <16 bytes>
	require.Equal(t, []byte{0xd8, 0x25, 0x50}, data[:3])
	require.Len(t, data, 19)

	var decoded UUIDv7
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.Equal(t, v, decoded)
}

func TestUUIDv4RoundTripsThroughCBOR(t *testing.T) {
	v := NewUUIDv4()
	data, err := v.MarshalCBOR()
	require.NoError(t, err)

	var decoded UUIDv4
	require.NoError(t, decoded.UnmarshalCBOR(data))
	require.Equal(t, v, decoded)
}

func TestUUIDDecodeRejectsWrongVersion(t *testing.T) {
	v4, err := NewUUIDv4().MarshalCBOR()
	require.NoError(t, err)
	var v7 UUIDv7
	require.Error(t, v7.UnmarshalCBOR(v4))

	raw7, err := MustUUIDv7().MarshalCBOR()
	require.NoError(t, err)
	var v4out UUIDv4
	require.Error(t, v4out.UnmarshalCBOR(raw7))
}

func TestUUIDDecodeRejectsUntaggedAndShort(t *testing.T) {
	var v UUIDv7
	// untagged byte string
	require.Error(t, v.UnmarshalCBOR(append([]byte{0x50}, make([]byte, 16)...)))
	// tag 37 over 4 bytes
	require.Error(t, v.UnmarshalCBOR([]byte{0xd8, 0x25, 0x44, 1, 2, 3, 4}))
}

func TestParseUUIDEnforcesVersion(t *testing.T) {
	v7 := MustUUIDv7()
	_, err := ParseUUIDv4(v7.String())
	require.Error(t, err)

	v4 := NewUUIDv4()
	_, err = ParseUUIDv7(v4.String())
	require.Error(t, err)

	parsed, err := ParseUUIDv7(v7.String())
	require.NoError(t, err)
	require.Equal(t, v7, parsed)
}

func TestUUIDv7OrderingFollowsTime(t *testing.T) {
	a := MustUUIDv7()
	b := MustUUIDv7()
	require.LessOrEqual(t, a.Compare(b), 0)
	require.Equal(t, 0, a.Compare(a))
}

func TestUUIDv7TimeIsRecent(t *testing.T) {
	v := MustUUIDv7()
	delta := time.Since(v.Time())
	require.Less(t, delta.Abs(), time.Minute)
}

func TestUUIDZeroSentinel(t *testing.T) {
	var v4 UUIDv4
	var v7 UUIDv7
	require.True(t, v4.IsZero())
	require.True(t, v7.IsZero())
	require.False(t, NewUUIDv4().IsZero())
	require.False(t, MustUUIDv7().IsZero())
}
