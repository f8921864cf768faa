package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProjectMembership(t *testing.T) {
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	project := &Project{
		Owner: owner,
		Members: []Member{
			{User: owner, Role: RoleOwner},
			{User: admin, Role: RoleAdmin},
			{User: member, Role: RoleMember},
		},
	}

	if !project.IsMember(owner) || !project.IsMember(admin) || !project.IsMember(member) {
		t.Error("all listed members should be members")
	}
	if project.IsMember(outsider) {
		t.Error("outsider should not be a member")
	}

	if got := project.GetRole(admin); got != RoleAdmin {
		t.Errorf("GetRole(admin) = %q, want %q", got, RoleAdmin)
	}
	if got := project.GetRole(outsider); got != "" {
		t.Errorf("GetRole(outsider) = %q, want empty", got)
	}

	if !project.CanEdit(owner) || !project.CanEdit(admin) {
		t.Error("owner and admin should be able to edit")
	}
	if project.CanEdit(member) {
		t.Error("plain member should not be able to edit")
	}
	if project.CanEdit(outsider) {
		t.Error("outsider should not be able to edit")
	}
}
