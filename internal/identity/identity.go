// Package identity resolves the users and groups the helper deals with: the
// web-server account it must be called by and the script owner it becomes.
// Lookups go through a Resolver interface so that tests can supply a fake
// account database.
package identity

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/isseis/go-cgi-runas/internal/sysexits"
)

// Error definitions
var (
	ErrUnknownUser  = errors.New("no such user")
	ErrUnknownGroup = errors.New("no such group")
)

// User is a resolved account database user record.
type User struct {
	Name    string
	UID     uint32
	GID     uint32 // primary group
	HomeDir string
}

// Group is a resolved account database group record.
type Group struct {
	Name string
	GID  uint32
}

// Resolver looks up users and groups in the system account database.
type Resolver interface {
	LookupUserID(uid uint32) (*User, error)
	LookupUserName(name string) (*User, error)
	LookupGroupID(gid uint32) (*Group, error)
	LookupGroupName(name string) (*Group, error)
}

// DefaultResolver resolves against the real account database via os/user.
type DefaultResolver struct{}

// NewDefaultResolver creates a DefaultResolver
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// LookupUserID looks up a user by numeric UID
func (r *DefaultResolver) LookupUserID(uid uint32) (*User, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		var unknown user.UnknownUserIdError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("%w: UID %d", ErrUnknownUser, uid)
		}
		return nil, fmt.Errorf("%w: lookup UID %d: %v", sysexits.ErrOSErr, uid, err)
	}
	return convertUser(u)
}

// LookupUserName looks up a user by name
func (r *DefaultResolver) LookupUserName(name string) (*User, error) {
	u, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, name)
		}
		return nil, fmt.Errorf("%w: lookup user %s: %v", sysexits.ErrOSErr, name, err)
	}
	return convertUser(u)
}

// LookupGroupID looks up a group by numeric GID
func (r *DefaultResolver) LookupGroupID(gid uint32) (*Group, error) {
	g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
	if err != nil {
		var unknown user.UnknownGroupIdError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("%w: GID %d", ErrUnknownGroup, gid)
		}
		return nil, fmt.Errorf("%w: lookup GID %d: %v", sysexits.ErrOSErr, gid, err)
	}
	return convertGroup(g)
}

// LookupGroupName looks up a group by name
func (r *DefaultResolver) LookupGroupName(name string) (*Group, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
		}
		return nil, fmt.Errorf("%w: lookup group %s: %v", sysexits.ErrOSErr, name, err)
	}
	return convertGroup(g)
}

func convertUser(u *user.User) (*User, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric UID %q for user %s", sysexits.ErrOSErr, u.Uid, u.Username)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric GID %q for user %s", sysexits.ErrOSErr, u.Gid, u.Username)
	}
	return &User{Name: u.Username, UID: uint32(uid), GID: uint32(gid), HomeDir: u.HomeDir}, nil
}

func convertGroup(g *user.Group) (*Group, error) {
	gid, err := strconv.ParseUint(g.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: non-numeric GID %q for group %s", sysexits.ErrOSErr, g.Gid, g.Name)
	}
	return &Group{Name: g.Name, GID: uint32(gid)}, nil
}
