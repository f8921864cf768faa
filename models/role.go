package models

// Role is a project-level membership role. Permission checks go through
// the capability table below instead of comparing strings at call sites.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type capabilities struct {
	CanEdit          bool
	CanInvite        bool
	CanManageMembers bool
}

var roleCapabilities = map[Role]capabilities{
	RoleOwner:  {CanEdit: true, CanInvite: true, CanManageMembers: true},
	RoleAdmin:  {CanEdit: true, CanInvite: true, CanManageMembers: true},
	RoleMember: {CanEdit: false, CanInvite: true, CanManageMembers: false},
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r Role) CanEdit() bool { return roleCapabilities[r].CanEdit }

func (r Role) CanInvite() bool { return roleCapabilities[r].CanInvite }

func (r Role) CanManageMembers() bool { return roleCapabilities[r].CanManageMembers }

// Outranks reports whether r sits strictly above other in the
// owner > admin > member order.
func (r Role) Outranks(other Role) bool {
	return rank(r) > rank(other)
}

func rank(r Role) int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}
