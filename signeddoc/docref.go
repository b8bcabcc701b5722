package signeddoc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DocumentRef points at another document by id, optionally pinning a version.
// A ref with a zero Ver means "latest known version".
//
// Wire form is a map {"id": uuid} or {"id": uuid, "ver": uuid}; fields where
// the document-type policy allows multiple references carry an array of such
// maps instead.
type DocumentRef struct {
	ID  UUIDv7
	Ver UUIDv7
}

// HasVer reports whether the ref pins an exact version.
func (r DocumentRef) HasVer() bool { return !r.Ver.IsZero() }

// IsZero reports whether the ref is entirely unset.
func (r DocumentRef) IsZero() bool { return r.ID.IsZero() && r.Ver.IsZero() }

func (r DocumentRef) String() string {
	if r.HasVer() {
		return r.ID.String() + "@" + r.Ver.String()
	}
	return r.ID.String() + "@latest"
}

// MarshalCBOR encodes the ref as a canonical map.
func (r DocumentRef) MarshalCBOR() ([]byte, error) {
	m := map[string]cbor.RawMessage{}
	id, err := r.ID.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	m["id"] = id
	if r.HasVer() {
		ver, err := r.Ver.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		m["ver"] = ver
	}
	return canonicalEncMode.Marshal(m)
}

// UnmarshalCBOR decodes a ref map, rejecting unknown or duplicate keys.
func (r *DocumentRef) UnmarshalCBOR(data []byte) error {
	var m map[string]cbor.RawMessage
	if err := strictDecMode.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("document ref: %w", err)
	}
	raw, ok := m["id"]
	if !ok {
		return fmt.Errorf("document ref: missing id")
	}
	var ref DocumentRef
	if err := ref.ID.UnmarshalCBOR(raw); err != nil {
		return fmt.Errorf("document ref id: %w", err)
	}
	if raw, ok := m["ver"]; ok {
		if err := ref.Ver.UnmarshalCBOR(raw); err != nil {
			return fmt.Errorf("document ref ver: %w", err)
		}
	}
	for k := range m {
		if k != "id" && k != "ver" {
			return fmt.Errorf("document ref: unknown key %q", k)
		}
	}
	*r = ref
	return nil
}

// Chain binds successive versions of a document into a strict sequence.
// Height starts at 0 on the origin document (which has no link) and grows by
// one with every new version. The terminal version carries the final height
// negated; nothing may chain onto a terminal document.
//
// Wire form is a map {"height": int, "link": ref-map?}. The height is a
// plain CBOR integer, negative on the terminal link.
type Chain struct {
	Height int32
	Link   *DocumentRef
}

// Terminal reports whether the chain is closed at this document.
func (c Chain) Terminal() bool { return c.Height < 0 }

// AbsHeight returns the height with the terminal negation removed.
func (c Chain) AbsHeight() int32 {
	if c.Height < 0 {
		return -c.Height
	}
	return c.Height
}

func (c Chain) String() string {
	if c.Link == nil {
		return fmt.Sprintf("height %d", c.Height)
	}
	return fmt.Sprintf("height %d, link %s", c.Height, c.Link)
}

// MarshalCBOR encodes the chain as a canonical map.
func (c Chain) MarshalCBOR() ([]byte, error) {
	m := map[string]cbor.RawMessage{}
	h, err := canonicalEncMode.Marshal(c.Height)
	if err != nil {
		return nil, err
	}
	m["height"] = h
	if c.Link != nil {
		link, err := c.Link.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		m["link"] = link
	}
	return canonicalEncMode.Marshal(m)
}

// UnmarshalCBOR decodes a chain map, rejecting unknown or duplicate keys.
func (c *Chain) UnmarshalCBOR(data []byte) error {
	var m map[string]cbor.RawMessage
	if err := strictDecMode.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	raw, ok := m["height"]
	if !ok {
		return fmt.Errorf("chain: missing height")
	}
	var chain Chain
	if err := cbor.Unmarshal(raw, &chain.Height); err != nil {
		return fmt.Errorf("chain height: %w", err)
	}
	if raw, ok := m["link"]; ok {
		var ref DocumentRef
		if err := ref.UnmarshalCBOR(raw); err != nil {
			return fmt.Errorf("chain link: %w", err)
		}
		chain.Link = &ref
	}
	for k := range m {
		if k != "height" && k != "link" {
			return fmt.Errorf("chain: unknown key %q", k)
		}
	}
	*c = chain
	return nil
}
