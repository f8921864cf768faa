package services

import (
	"context"
	"time"

	"team-collab/backend/models"
	"team-collab/backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ProjectService struct {
	projectsCollection *mongo.Collection
	usersCollection    *mongo.Collection
}

func NewProjectService(projectsCollection, usersCollection *mongo.Collection) *ProjectService {
	return &ProjectService{
		projectsCollection: projectsCollection,
		usersCollection:    usersCollection,
	}
}

type ProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	Priority    models.Priority
	Tags        []string
	Color       string
	IsPrivate   bool
}

// CreateProject creates the project with the owner as its first member.
// Non-private projects get an invite code, private ones never have one.
func (s *ProjectService) CreateProject(ctx context.Context, input ProjectInput, ownerID primitive.ObjectID) (*models.Project, error) {
	if input.Status == "" {
		input.Status = models.ProjectPlanning
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if input.Color == "" {
		input.Color = "#3B82F6"
	}
	if !utils.IsValidHexColor(input.Color) {
		return nil, models.NewValidationError("color must be a valid hex color code")
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}

	now := time.Now()
	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		Owner:       ownerID,
		Members: []models.Member{
			{User: ownerID, Role: models.RoleOwner, JoinedAt: now},
		},
		Status:    input.Status,
		Priority:  input.Priority,
		Tags:      input.Tags,
		Color:     input.Color,
		IsPrivate: input.IsPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !input.IsPrivate {
		project.InviteCode = utils.GenerateInviteCode()
	}

	if _, err := s.projectsCollection.InsertOne(ctx, project); err != nil {
		return nil, models.NewPersistenceError("create project", err)
	}

	if _, err := s.usersCollection.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$push": bson.M{"projects": project.ID}}); err != nil {
		return nil, models.NewPersistenceError("link project to owner", err)
	}

	return project, nil
}

func (s *ProjectService) GetProjectByID(ctx context.Context, projectID primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.projectsCollection.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("project")
	}
	if err != nil {
		return nil, models.NewPersistenceError("fetch project", err)
	}
	return &project, nil
}

// GetProjectsByUser lists projects the user owns or belongs to, most
// recently updated first.
func (s *ProjectService) GetProjectsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"members.user": userID},
	}}

	opts := mongoFindSortedByUpdatedAtDesc()
	cursor, err := s.projectsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.NewPersistenceError("list projects", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, models.NewPersistenceError("decode projects", err)
	}
	return projects, nil
}

// UpdateProject applies a partial update; flipping privacy regenerates or
// clears the invite code so private projects never carry one.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID, requesterID primitive.ObjectID, update bson.M, isPrivate *bool) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.CanEdit(requesterID) {
		return nil, models.NewAuthorizationError("admin or owner privileges required to edit the project")
	}

	if color, ok := update["color"].(string); ok && !utils.IsValidHexColor(color) {
		return nil, models.NewValidationError("color must be a valid hex color code")
	}

	if isPrivate != nil {
		update["isPrivate"] = *isPrivate
		if *isPrivate {
			update["inviteCode"] = nil
		} else if project.InviteCode == "" {
			update["inviteCode"] = utils.GenerateInviteCode()
		}
	}
	update["updatedAt"] = time.Now()

	var updated models.Project
	err = s.projectsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{"$set": update},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("update project", err)
	}
	return &updated, nil
}

// DeleteProject removes the project and prunes it from every member's
// project list. Only the owner may delete.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, requesterID primitive.ObjectID) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Owner != requesterID {
		return nil, models.NewAuthorizationError("only the project owner can delete the project")
	}

	memberIDs := make([]primitive.ObjectID, 0, len(project.Members))
	for _, m := range project.Members {
		memberIDs = append(memberIDs, m.User)
	}
	if _, err := s.usersCollection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": memberIDs}},
		bson.M{"$pull": bson.M{"projects": projectID}}); err != nil {
		return nil, models.NewPersistenceError("unlink project from members", err)
	}

	if _, err := s.projectsCollection.DeleteOne(ctx, bson.M{"_id": projectID}); err != nil {
		return nil, models.NewPersistenceError("delete project", err)
	}
	return project, nil
}

// JoinByInviteCode adds the user as a plain member of the project holding
// the code.
func (s *ProjectService) JoinByInviteCode(ctx context.Context, inviteCode string, userID primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.projectsCollection.FindOne(ctx, bson.M{"inviteCode": inviteCode}).Decode(&project)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("invite code")
	}
	if err != nil {
		return nil, models.NewPersistenceError("look up invite code", err)
	}

	if project.IsMember(userID) {
		return nil, models.NewValidationError("you are already a member of this project")
	}

	member := models.Member{User: userID, Role: models.RoleMember, JoinedAt: time.Now()}
	err = s.projectsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": project.ID},
		bson.M{"$push": bson.M{"members": member}, "$set": bson.M{"updatedAt": time.Now()}},
		mongoReturnAfter()).Decode(&project)
	if err != nil {
		return nil, models.NewPersistenceError("add member", err)
	}

	if _, err := s.usersCollection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"projects": project.ID}}); err != nil {
		return nil, models.NewPersistenceError("link project to member", err)
	}
	return &project, nil
}

// InviteByEmail adds a registered user to the project directly. Any member
// may invite; only owners and admins may grant the admin role, and nobody
// is invited in as owner.
func (s *ProjectService) InviteByEmail(ctx context.Context, projectID, requesterID primitive.ObjectID, email string, role models.Role) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	requesterRole := project.GetRole(requesterID)
	if !requesterRole.CanInvite() {
		return nil, models.NewAuthorizationError("project membership required to invite users")
	}
	if role == "" {
		role = models.RoleMember
	}
	if role == models.RoleOwner {
		return nil, models.NewValidationError("cannot invite a user as owner")
	}
	if role == models.RoleAdmin && !requesterRole.CanManageMembers() {
		return nil, models.NewAuthorizationError("admin or owner privileges required to grant the admin role")
	}

	var user models.User
	err = s.usersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, models.NewPersistenceError("look up user", err)
	}

	if project.IsMember(user.ID) {
		return nil, models.NewValidationError("user is already a member of this project")
	}

	member := models.Member{User: user.ID, Role: role, JoinedAt: time.Now()}
	var updated models.Project
	err = s.projectsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{"$push": bson.M{"members": member}, "$set": bson.M{"updatedAt": time.Now()}},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("add member", err)
	}

	if _, err := s.usersCollection.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$push": bson.M{"projects": projectID}}); err != nil {
		return nil, models.NewPersistenceError("link project to member", err)
	}
	return &updated, nil
}

// UpdateMemberRole changes a member's role under the rules of the role
// model (see PlanRoleChange) and persists the resulting members list and
// owner field in one document write.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, projectID, requesterID, targetID primitive.ObjectID, newRole models.Role) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	members, newOwner, err := PlanRoleChange(project, requesterID, targetID, newRole)
	if err != nil {
		return nil, err
	}

	var updated models.Project
	err = s.projectsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{"$set": bson.M{"members": members, "owner": newOwner, "updatedAt": time.Now()}},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("update member role", err)
	}
	return &updated, nil
}

// RemoveMember removes another member from the project. The owner cannot
// be removed; admins may remove only plain members.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, requesterID, targetID primitive.ObjectID) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	requesterRole := project.GetRole(requesterID)
	targetRole := project.GetRole(targetID)
	if requesterRole == "" {
		return nil, models.NewAuthorizationError("project membership required to remove members")
	}
	if targetRole == "" {
		return nil, models.NewNotFoundError("member")
	}
	if !requesterRole.CanManageMembers() {
		return nil, models.NewAuthorizationError("admin or owner privileges required to remove members")
	}
	if targetRole == models.RoleOwner {
		return nil, models.NewAuthorizationError("the owner cannot be removed; transfer ownership first")
	}
	if requesterRole == models.RoleAdmin && targetRole != models.RoleMember {
		return nil, models.NewAuthorizationError("admins may only remove plain members")
	}

	return s.pruneMember(ctx, projectID, targetID)
}

// Leave removes the calling member from the project. The owner cannot
// leave without transferring ownership.
func (s *ProjectService) Leave(ctx context.Context, projectID, userID primitive.ObjectID) error {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Owner == userID {
		return models.NewAuthorizationError("the owner cannot leave the project; transfer ownership or delete it")
	}
	if !project.IsMember(userID) {
		return models.NewValidationError("you are not a member of this project")
	}

	_, err = s.pruneMember(ctx, projectID, userID)
	return err
}

func (s *ProjectService) pruneMember(ctx context.Context, projectID, userID primitive.ObjectID) (*models.Project, error) {
	var updated models.Project
	err := s.projectsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user": userID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("remove member", err)
	}

	if _, err := s.usersCollection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"projects": projectID}}); err != nil {
		return nil, models.NewPersistenceError("unlink project from member", err)
	}
	return &updated, nil
}
