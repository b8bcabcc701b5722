package signeddoc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// uuidCBORTag is the CBOR tag for a binary UUID (draft-ietf-cbor-tags).
const uuidCBORTag = 37

// UUIDv4 is a version 4 UUID used as a document type identifier.
// The zero value is the "invalid" sentinel produced when decoding fails.
type UUIDv4 [16]byte

// UUIDv7 is a version 7 UUID used for document ids and versions. Its leading
// 48 bits are a unix-millisecond timestamp, so ordering two versions of the
// same document is an unsigned 128-bit compare.
// The zero value is the "invalid" sentinel produced when decoding fails.
type UUIDv7 [16]byte

// NewUUIDv4 generates a random v4 UUID.
func NewUUIDv4() UUIDv4 {
	return UUIDv4(uuid.New())
}

// NewUUIDv7 generates a v7 UUID. Values are monotonically non-decreasing
// within a single process.
func NewUUIDv7() (UUIDv7, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return UUIDv7{}, fmt.Errorf("generate uuidv7: %w", err)
	}
	return UUIDv7(u), nil
}

// MustUUIDv7 is NewUUIDv7 panicking on failure; for tests and fixtures.
func MustUUIDv7() UUIDv7 {
	v, err := NewUUIDv7()
	if err != nil {
		panic(err)
	}
	return v
}

// ParseUUIDv4 parses the canonical string form and enforces the version bits.
func ParseUUIDv4(s string) (UUIDv4, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUIDv4{}, fmt.Errorf("parse uuid: %w", err)
	}
	if u.Version() != 4 {
		return UUIDv4{}, fmt.Errorf("uuid %s: version %d, want 4", s, u.Version())
	}
	return UUIDv4(u), nil
}

// ParseUUIDv7 parses the canonical string form and enforces the version bits.
func ParseUUIDv7(s string) (UUIDv7, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUIDv7{}, fmt.Errorf("parse uuid: %w", err)
	}
	if u.Version() != 7 {
		return UUIDv7{}, fmt.Errorf("uuid %s: version %d, want 7", s, u.Version())
	}
	return UUIDv7(u), nil
}

// MustUUIDv4 parses s, panicking on failure; for tests and fixtures.
func MustUUIDv4(s string) UUIDv4 {
	v, err := ParseUUIDv4(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v UUIDv4) String() string { return uuid.UUID(v).String() }
func (v UUIDv7) String() string { return uuid.UUID(v).String() }

// IsZero reports whether v is the invalid sentinel.
func (v UUIDv4) IsZero() bool { return v == UUIDv4{} }

// IsZero reports whether v is the invalid sentinel.
func (v UUIDv7) IsZero() bool { return v == UUIDv7{} }

// Time returns the millisecond timestamp carried in the UUID prefix.
func (v UUIDv7) Time() time.Time {
	ms := int64(v[0])<<40 | int64(v[1])<<32 | int64(v[2])<<24 |
		int64(v[3])<<16 | int64(v[4])<<8 | int64(v[5])
	return time.UnixMilli(ms).UTC()
}

// Compare orders two v7 UUIDs as unsigned 128-bit integers.
func (v UUIDv7) Compare(other UUIDv7) int {
	return bytes.Compare(v[:], other[:])
}

// MarshalCBOR encodes the UUID as tag 37 over a 16-byte string.
func (v UUIDv4) MarshalCBOR() ([]byte, error) { return marshalTaggedUUID(v[:]) }

// MarshalCBOR encodes the UUID as tag 37 over a 16-byte string.
func (v UUIDv7) MarshalCBOR() ([]byte, error) { return marshalTaggedUUID(v[:]) }

// UnmarshalCBOR decodes a tag 37 UUID and enforces the v4 version bits.
func (v *UUIDv4) UnmarshalCBOR(data []byte) error {
	u, err := unmarshalTaggedUUID(data, 4)
	if err != nil {
		return err
	}
	*v = UUIDv4(u)
	return nil
}

// UnmarshalCBOR decodes a tag 37 UUID and enforces the v7 version bits.
func (v *UUIDv7) UnmarshalCBOR(data []byte) error {
	u, err := unmarshalTaggedUUID(data, 7)
	if err != nil {
		return err
	}
	*v = UUIDv7(u)
	return nil
}

func marshalTaggedUUID(b []byte) ([]byte, error) {
	return canonicalEncMode.Marshal(cbor.Tag{Number: uuidCBORTag, Content: b})
}

func unmarshalTaggedUUID(data []byte, version byte) ([16]byte, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return [16]byte{}, fmt.Errorf("uuid: not a tagged value: %w", err)
	}
	if tag.Number != uuidCBORTag {
		return [16]byte{}, fmt.Errorf("uuid: tag %d, want %d", tag.Number, uuidCBORTag)
	}
	var raw []byte
	if err := cbor.Unmarshal(tag.Content, &raw); err != nil {
		return [16]byte{}, fmt.Errorf("uuid: tag content is not a byte string: %w", err)
	}
	if len(raw) != 16 {
		return [16]byte{}, fmt.Errorf("uuid: %d bytes, want 16", len(raw))
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return [16]byte{}, fmt.Errorf("uuid: %w", err)
	}
	if byte(u.Version()) != version {
		return [16]byte{}, fmt.Errorf("uuid %s: version %d, want %d", u, u.Version(), version)
	}
	return [16]byte(u), nil
}
