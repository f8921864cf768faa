package services

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/models"
)

func testProject(owner, admin, member primitive.ObjectID) *models.Project {
	return &models.Project{
		ID:    primitive.NewObjectID(),
		Owner: owner,
		Members: []models.Member{
			{User: owner, Role: models.RoleOwner},
			{User: admin, Role: models.RoleAdmin},
			{User: member, Role: models.RoleMember},
		},
	}
}

func countOwners(members []models.Member) int {
	n := 0
	for _, m := range members {
		if m.Role == models.RoleOwner {
			n++
		}
	}
	return n
}

func roleOf(members []models.Member, userID primitive.ObjectID) models.Role {
	for _, m := range members {
		if m.User == userID {
			return m.Role
		}
	}
	return ""
}

func TestPlanRoleChangeOwnershipTransfer(t *testing.T) {
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	project := testProject(owner, admin, member)

	members, newOwner, err := PlanRoleChange(project, owner, member, models.RoleOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := countOwners(members); got != 1 {
		t.Errorf("owner count = %d, want exactly 1", got)
	}
	if got := roleOf(members, member); got != models.RoleOwner {
		t.Errorf("target role = %q, want owner", got)
	}
	if got := roleOf(members, owner); got != models.RoleAdmin {
		t.Errorf("previous owner role = %q, want admin", got)
	}
	if newOwner != member {
		t.Errorf("owner field = %s, want the promoted member", newOwner.Hex())
	}

	// The input project is untouched; the write applies the plan.
	if project.Owner != owner || project.GetRole(owner) != models.RoleOwner {
		t.Error("planning must not mutate the source project")
	}
}

func TestPlanRoleChangeAdminCannotDemoteOwner(t *testing.T) {
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	project := testProject(owner, admin, member)

	_, _, err := PlanRoleChange(project, admin, owner, models.RoleMember)

	var authz *models.AuthorizationError
	if !errors.As(err, &authz) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
	if project.GetRole(owner) != models.RoleOwner || project.Owner != owner {
		t.Error("owner must remain owner after a rejected demotion")
	}
}

// An owner demoting themselves would leave the project with a dangling
// owner field and no owner role; the plan must reject it.
func TestPlanRoleChangeOwnerCannotSelfDemote(t *testing.T) {
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	project := testProject(owner, admin, member)

	for _, newRole := range []models.Role{models.RoleAdmin, models.RoleMember} {
		_, _, err := PlanRoleChange(project, owner, owner, newRole)
		var authz *models.AuthorizationError
		if !errors.As(err, &authz) {
			t.Fatalf("self-demotion to %s: want AuthorizationError, got %v", newRole, err)
		}
	}
	if project.GetRole(owner) != models.RoleOwner {
		t.Error("owner must remain owner")
	}
}

func TestPlanRoleChangePermissionRules(t *testing.T) {
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	tests := []struct {
		name      string
		requester primitive.ObjectID
		target    primitive.ObjectID
		newRole   models.Role
		wantErr   interface{}
	}{
		{"member changes nobody", member, admin, models.RoleMember, &models.AuthorizationError{}},
		{"outsider changes nobody", outsider, member, models.RoleAdmin, &models.AuthorizationError{}},
		{"admin promotes member to admin", admin, member, models.RoleAdmin, nil},
		{"admin cannot touch another admin", admin, admin, models.RoleMember, &models.AuthorizationError{}},
		{"admin cannot grant ownership", admin, member, models.RoleOwner, &models.AuthorizationError{}},
		{"owner demotes admin to member", owner, admin, models.RoleMember, nil},
		{"unknown target", owner, outsider, models.RoleAdmin, &models.NotFoundError{}},
		{"invalid role", owner, member, models.Role("superadmin"), &models.ValidationError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := testProject(owner, admin, member)
			members, newOwner, err := PlanRoleChange(project, tt.requester, tt.target, tt.newRole)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := roleOf(members, tt.target); got != tt.newRole {
					t.Errorf("target role = %q, want %q", got, tt.newRole)
				}
				if got := countOwners(members); got != 1 {
					t.Errorf("owner count = %d, want exactly 1", got)
				}
				if newOwner != owner {
					t.Errorf("owner field changed to %s without a transfer", newOwner.Hex())
				}
				return
			}

			switch tt.wantErr.(type) {
			case *models.AuthorizationError:
				var e *models.AuthorizationError
				if !errors.As(err, &e) {
					t.Fatalf("want AuthorizationError, got %v", err)
				}
			case *models.NotFoundError:
				var e *models.NotFoundError
				if !errors.As(err, &e) {
					t.Fatalf("want NotFoundError, got %v", err)
				}
			case *models.ValidationError:
				var e *models.ValidationError
				if !errors.As(err, &e) {
					t.Fatalf("want ValidationError, got %v", err)
				}
			}
		})
	}
}
