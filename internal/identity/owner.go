package identity

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Range is an inclusive numeric ID range.
type Range struct {
	Min uint32
	Max uint32
}

// Contains reports whether id lies within the range
func (r Range) Contains(id uint32) bool {
	return id >= r.Min && id <= r.Max
}

// ResolveOwner validates a script's numeric owner and resolves it to account
// database records. The UID and GID must be positive and within their
// configured ranges, the user and group must exist with portable names, and
// the group must be the user's primary group.
func ResolveOwner(resolver Resolver, uid, gid uint32, uidRange, gidRange Range) (*User, *Group, error) {
	if uid == 0 {
		return nil, nil, fmt.Errorf("%w: script UID is 0", sysexits.ErrNoPerm)
	}
	if gid == 0 {
		return nil, nil, fmt.Errorf("%w: script GID is 0", sysexits.ErrNoPerm)
	}
	if !uidRange.Contains(uid) {
		return nil, nil, fmt.Errorf("%w: script UID %d is outside the range [%d, %d]",
			sysexits.ErrNoPerm, uid, uidRange.Min, uidRange.Max)
	}
	if !gidRange.Contains(gid) {
		return nil, nil, fmt.Errorf("%w: script GID %d is outside the range [%d, %d]",
			sysexits.ErrNoPerm, gid, gidRange.Min, gidRange.Max)
	}

	owner, err := resolver.LookupUserID(uid)
	if err != nil {
		return nil, nil, wrapLookupErr(err)
	}
	group, err := resolver.LookupGroupID(gid)
	if err != nil {
		return nil, nil, wrapLookupErr(err)
	}

	// Defensive: the names come from the system database, but a hostile
	// NSS module is still somebody else's code.
	if !IsPortableName(owner.Name) {
		return nil, nil, fmt.Errorf("%w: user name %q is not portable", sysexits.ErrNoUser, owner.Name)
	}
	if !IsPortableName(group.Name) {
		return nil, nil, fmt.Errorf("%w: group name %q is not portable", sysexits.ErrNoUser, group.Name)
	}

	if owner.GID != gid {
		return nil, nil, fmt.Errorf("%w: GID %d is not %s's primary group", sysexits.ErrNoUser, gid, owner.Name)
	}

	slog.Debug("Resolved script owner",
		"user", owner.Name,
		"uid", owner.UID,
		"group", group.Name,
		"gid", group.GID)
	return owner, group, nil
}

// wrapLookupErr attaches the NOUSER kind to unknown-account errors while
// leaving already-classified errors (OSERR) untouched.
func wrapLookupErr(err error) error {
	if errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrUnknownGroup) {
		return fmt.Errorf("%w: %v", sysexits.ErrNoUser, err)
	}
	return err
}
