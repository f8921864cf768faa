package models

import "testing"

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role      Role
		canEdit   bool
		canInvite bool
		canManage bool
	}{
		{RoleOwner, true, true, true},
		{RoleAdmin, true, true, true},
		{RoleMember, false, true, false},
	}

	for _, tt := range tests {
		if got := tt.role.CanEdit(); got != tt.canEdit {
			t.Errorf("%s.CanEdit() = %v, want %v", tt.role, got, tt.canEdit)
		}
		if got := tt.role.CanInvite(); got != tt.canInvite {
			t.Errorf("%s.CanInvite() = %v, want %v", tt.role, got, tt.canInvite)
		}
		if got := tt.role.CanManageMembers(); got != tt.canManage {
			t.Errorf("%s.CanManageMembers() = %v, want %v", tt.role, got, tt.canManage)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleMember} {
		if !role.Valid() {
			t.Errorf("%s should be valid", role)
		}
	}
	for _, role := range []Role{"", "superadmin", "Owner"} {
		if role.Valid() {
			t.Errorf("%q should be invalid", role)
		}
	}
}

func TestRoleOutranks(t *testing.T) {
	if !RoleOwner.Outranks(RoleAdmin) || !RoleAdmin.Outranks(RoleMember) {
		t.Error("expected owner > admin > member ordering")
	}
	if RoleAdmin.Outranks(RoleAdmin) {
		t.Error("a role must not outrank itself")
	}
	if RoleMember.Outranks(RoleAdmin) {
		t.Error("member must not outrank admin")
	}
	if !RoleMember.Outranks(Role("unknown")) {
		t.Error("any known role outranks an unknown one")
	}
}
