package signeddoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// catalystIDScheme prefixes every Catalyst identity URI.
const catalystIDScheme = "catalyst-id://"

// Authority is the network a Catalyst identity is registered on.
type Authority string

const (
	AuthorityCardano  Authority = "cardano"
	AuthorityMidnight Authority = "midnight"
)

// Role is a Catalyst user role index. The canonical indexes are statically
// defined; any other value parses but reports true from IsUnknown.
type Role uint16

const (
	RoleVoter                   Role = 0
	RoleDelegatedRepresentative Role = 1
	RoleProposer                Role = 3
	RoleRootCA                  Role = 100
	RoleBrandCA                 Role = 101
	RoleCampaignCA              Role = 102
	RoleCategoryCA              Role = 103
	RoleRootAdmin               Role = 104
	RoleBrandAdmin              Role = 105
	RoleCampaignAdmin           Role = 106
	RoleCategoryAdmin           Role = 107
	RoleModerator               Role = 108
)

// IsUnknown reports whether the role is outside the canonical set.
func (r Role) IsUnknown() bool {
	switch r {
	case RoleVoter, RoleDelegatedRepresentative, RoleProposer,
		RoleRootCA, RoleBrandCA, RoleCampaignCA, RoleCategoryCA,
		RoleRootAdmin, RoleBrandAdmin, RoleCampaignAdmin, RoleCategoryAdmin,
		RoleModerator:
		return false
	}
	return true
}

func (r Role) String() string { return strconv.FormatUint(uint64(r), 10) }

// CatalystID identifies a signer: who (UserID), in what capacity (Role), and
// with which key material (Rotation, KeyVersion). It round-trips exactly
// to and from its URI form:
//
//	catalyst-id://<authority>/<role>/<rotation>/<key-version>/<user-id>
type CatalystID struct {
	Authority  Authority
	Role       Role
	Rotation   uint16
	KeyVersion uint16
	UserID     string
}

// ErrInvalidCatalystID wraps all CatalystID parse failures.
var ErrInvalidCatalystID = errors.New("invalid catalyst id")

// ParseCatalystID parses the URI form of a Catalyst identity.
func ParseCatalystID(s string) (CatalystID, error) {
	rest, ok := strings.CutPrefix(s, catalystIDScheme)
	if !ok {
		return CatalystID{}, fmt.Errorf("%w: %q: missing %q scheme", ErrInvalidCatalystID, s, catalystIDScheme)
	}
	parts := strings.SplitN(rest, "/", 5)
	if len(parts) != 5 {
		return CatalystID{}, fmt.Errorf("%w: %q: want authority/role/rotation/key-version/user-id", ErrInvalidCatalystID, s)
	}

	var id CatalystID
	switch Authority(parts[0]) {
	case AuthorityCardano, AuthorityMidnight:
		id.Authority = Authority(parts[0])
	default:
		return CatalystID{}, fmt.Errorf("%w: unknown authority %q", ErrInvalidCatalystID, parts[0])
	}

	role, err := parseU16(parts[1], "role")
	if err != nil {
		return CatalystID{}, err
	}
	id.Role = Role(role)

	if id.Rotation, err = parseU16(parts[2], "rotation"); err != nil {
		return CatalystID{}, err
	}
	if id.KeyVersion, err = parseU16(parts[3], "key-version"); err != nil {
		return CatalystID{}, err
	}

	if parts[4] == "" {
		return CatalystID{}, fmt.Errorf("%w: empty user-id", ErrInvalidCatalystID)
	}
	id.UserID = parts[4]
	return id, nil
}

func parseU16(s, field string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidCatalystID, field, s, err)
	}
	// Reject forms that would not round-trip, like "007".
	if strconv.FormatUint(v, 10) != s {
		return 0, fmt.Errorf("%w: %s %q is not in canonical form", ErrInvalidCatalystID, field, s)
	}
	return uint16(v), nil
}

// String renders the URI form. The zero value renders as an empty string.
func (id CatalystID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s%s/%d/%d/%d/%s",
		catalystIDScheme, id.Authority, id.Role, id.Rotation, id.KeyVersion, id.UserID)
}

// IsZero reports whether id is the invalid sentinel.
func (id CatalystID) IsZero() bool { return id == CatalystID{} }

// Signer returns the identity tuple that names a signer, independent of the
// key material in use.
func (id CatalystID) Signer() (userID string, role Role) {
	return id.UserID, id.Role
}
