// Package identitytest provides a fake account database resolver for tests.
package identitytest

import (
	"fmt"

	"github.com/isseis/go-cgi-runas/internal/identity"
)

// Resolver is an in-memory identity.Resolver.
type Resolver struct {
	usersByID    map[uint32]*identity.User
	usersByName  map[string]*identity.User
	groupsByID   map[uint32]*identity.Group
	groupsByName map[string]*identity.Group
}

// New creates an empty fake resolver.
func New() *Resolver {
	return &Resolver{
		usersByID:    make(map[uint32]*identity.User),
		usersByName:  make(map[string]*identity.User),
		groupsByID:   make(map[uint32]*identity.Group),
		groupsByName: make(map[string]*identity.Group),
	}
}

// AddUser registers a user record.
func (r *Resolver) AddUser(u identity.User) *Resolver {
	r.usersByID[u.UID] = &u
	r.usersByName[u.Name] = &u
	return r
}

// AddGroup registers a group record.
func (r *Resolver) AddGroup(g identity.Group) *Resolver {
	r.groupsByID[g.GID] = &g
	r.groupsByName[g.Name] = &g
	return r
}

// LookupUserID implements identity.Resolver
func (r *Resolver) LookupUserID(uid uint32) (*identity.User, error) {
	if u, ok := r.usersByID[uid]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: UID %d", identity.ErrUnknownUser, uid)
}

// LookupUserName implements identity.Resolver
func (r *Resolver) LookupUserName(name string) (*identity.User, error) {
	if u, ok := r.usersByName[name]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: %s", identity.ErrUnknownUser, name)
}

// LookupGroupID implements identity.Resolver
func (r *Resolver) LookupGroupID(gid uint32) (*identity.Group, error) {
	if g, ok := r.groupsByID[gid]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: GID %d", identity.ErrUnknownGroup, gid)
}

// LookupGroupName implements identity.Resolver
func (r *Resolver) LookupGroupName(name string) (*identity.Group, error) {
	if g, ok := r.groupsByName[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", identity.ErrUnknownGroup, name)
}
