package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/models"
)

// PlanRoleChange validates a member role change and returns the resulting
// members list and project owner, without touching storage. The rules:
// the requester must hold a managing role; admins may only move plain
// members between member and admin and never grant ownership; the owner's
// own role changes only through an ownership transfer, where promoting the
// target demotes the current owner to admin and reassigns the owner field,
// so exactly one owner exists at any time.
func PlanRoleChange(project *models.Project, requesterID, targetID primitive.ObjectID, newRole models.Role) ([]models.Member, primitive.ObjectID, error) {
	if !newRole.Valid() {
		return nil, primitive.NilObjectID, models.NewValidationError("role must be member, admin, or owner")
	}

	requesterRole := project.GetRole(requesterID)
	targetRole := project.GetRole(targetID)
	if requesterRole == "" {
		return nil, primitive.NilObjectID, models.NewAuthorizationError("project membership required to manage roles")
	}
	if targetRole == "" {
		return nil, primitive.NilObjectID, models.NewNotFoundError("member")
	}
	if !requesterRole.CanManageMembers() {
		return nil, primitive.NilObjectID, models.NewAuthorizationError("admin or owner privileges required to change roles")
	}

	if requesterRole == models.RoleAdmin {
		if targetRole != models.RoleMember {
			return nil, primitive.NilObjectID, models.NewAuthorizationError("admins may only change plain members")
		}
		if newRole == models.RoleOwner {
			return nil, primitive.NilObjectID, models.NewAuthorizationError("only the owner can transfer ownership")
		}
	}

	// The owner's role never changes directly, not even by the owner
	// themselves; it only steps down to admin as part of an ownership
	// transfer.
	if targetRole == models.RoleOwner && newRole != models.RoleOwner {
		return nil, primitive.NilObjectID, models.NewAuthorizationError("the owner cannot be demoted; transfer ownership instead")
	}

	members := make([]models.Member, len(project.Members))
	copy(members, project.Members)

	newOwner := project.Owner
	for i := range members {
		switch {
		case members[i].User == targetID:
			members[i].Role = newRole
		case newRole == models.RoleOwner && members[i].Role == models.RoleOwner:
			// Previous owner steps down to admin on ownership transfer.
			members[i].Role = models.RoleAdmin
		}
	}
	if newRole == models.RoleOwner {
		newOwner = targetID
	}
	return members, newOwner, nil
}
