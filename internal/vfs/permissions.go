package vfs

import (
	"os"
	"strings"
)

// Permission is a read/write/execute bit set for one class of users.
type Permission uint8

const (
	Execute Permission = 1 << iota
	Write
	Read

	NoPermission   Permission = 0
	FullPermission            = Read | Write | Execute
)

func (p Permission) String() string {
	var b strings.Builder

	for _, c := range []struct {
		bit  Permission
		char byte
	}{{Read, 'r'}, {Write, 'w'}, {Execute, 'x'}} {
		if p&c.bit != 0 {
			b.WriteByte(c.char)
		} else {
			b.WriteByte('-')
		}
	}

	return b.String()
}

// Permissions holds the permissions of the owning user, the owning group and
// everybody else.
type Permissions struct {
	User   Permission
	Group  Permission
	Others Permission
}

// NewPermissions returns a [Permissions] with the given classes.
func NewPermissions(user, group, others Permission) Permissions {
	return Permissions{User: user, Group: group, Others: others}
}

// NewAllFull returns a [Permissions] granting everything to everybody.
func NewAllFull() Permissions {
	return NewPermissions(FullPermission, FullPermission, FullPermission)
}

// FromUnix converts a Unix permission mode (e.g. 0o640).
func FromUnix(mode uint32) Permissions {
	return Permissions{
		User:   Permission(mode>>6) & FullPermission, //nolint:gosec
		Group:  Permission(mode>>3) & FullPermission, //nolint:gosec
		Others: Permission(mode) & FullPermission,    //nolint:gosec
	}
}

// ToUnix converts the permissions to a Unix permission mode.
func (p Permissions) ToUnix() uint32 {
	return uint32(p.User&FullPermission)<<6 |
		uint32(p.Group&FullPermission)<<3 |
		uint32(p.Others&FullPermission)
}

// FileMode converts the permissions to the host representation.
func (p Permissions) FileMode() os.FileMode {
	return os.FileMode(p.ToUnix()) & os.ModePerm
}

func (p Permissions) String() string {
	return p.User.String() + p.Group.String() + p.Others.String()
}
