package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/logging"
	"team-collab/backend/middleware"
	"team-collab/backend/models"
	"team-collab/backend/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	tasks    *services.TaskService
	messages *services.MessageService
}

func NewProjectHandler(projects *services.ProjectService, tasks *services.TaskService, messages *services.MessageService) *ProjectHandler {
	return &ProjectHandler{projects: projects, tasks: tasks, messages: messages}
}

type createProjectRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	Status      string   `json:"status" validate:"omitempty,oneof=planning active completed archived"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags        []string `json:"tags"`
	Color       string   `json:"color" validate:"omitempty,max=7"`
	IsPrivate   bool     `json:"isPrivate"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createProjectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.CreateProject(r.Context(), services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatus(req.Status),
		Priority:    models.Priority(req.Priority),
		Tags:        req.Tags,
		Color:       req.Color,
		IsPrivate:   req.IsPrivate,
	}, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by user %s", project.ID.Hex(), user.ID.Hex())
	writeData(w, http.StatusCreated, "Project created successfully", map[string]interface{}{"project": project})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	projects, err := h.projects.GetProjectsByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	count := len(projects)
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Count:   &count,
		Data:    map[string]interface{}{"projects": projects},
	})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())
	writeData(w, http.StatusOK, "", map[string]interface{}{"project": project})
}

type updateProjectRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Status      *string  `json:"status" validate:"omitempty,oneof=planning active completed archived"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags        []string `json:"tags"`
	Color       *string  `json:"color" validate:"omitempty,max=7"`
	IsPrivate   *bool    `json:"isPrivate"`
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	var req updateProjectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Status != nil {
		update["status"] = *req.Status
	}
	if req.Priority != nil {
		update["priority"] = *req.Priority
	}
	if req.Tags != nil {
		update["tags"] = req.Tags
	}
	if req.Color != nil {
		update["color"] = *req.Color
	}

	updated, err := h.projects.UpdateProject(r.Context(), project.ID, user.ID, update, req.IsPrivate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Project updated successfully", map[string]interface{}{"project": updated})
}

// Delete removes the project and cascades to its tasks and messages.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	deleted, err := h.projects.DeleteProject(r.Context(), project.ID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.tasks.DeleteTasksByProject(r.Context(), deleted.ID); err != nil {
		logging.Logger.Errorf("Event ID: PROJECT_CASCADE_TASKS_FAILED, Description: Orphaned tasks for project %s: %v", deleted.ID.Hex(), err)
	}
	if err := h.messages.DeleteMessagesByProject(r.Context(), deleted.ID); err != nil {
		logging.Logger.Errorf("Event ID: PROJECT_CASCADE_MESSAGES_FAILED, Description: Orphaned messages for project %s: %v", deleted.ID.Hex(), err)
	}

	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted by user %s", deleted.ID.Hex(), user.ID.Hex())
	writeData(w, http.StatusOK, "Project deleted successfully", nil)
}

type joinProjectRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,len=8"`
}

func (h *ProjectHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req joinProjectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.JoinByInviteCode(r.Context(), req.InviteCode, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: PROJECT_JOINED, Description: User %s joined project %s via invite code", user.ID.Hex(), project.ID.Hex())
	writeData(w, http.StatusOK, "Joined project successfully", map[string]interface{}{"project": project})
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=member admin"`
}

func (h *ProjectHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	var req inviteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.projects.InviteByEmail(r.Context(), project.ID, user.ID, req.Email, models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "User invited successfully", map[string]interface{}{"project": updated})
}

type memberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin owner"`
}

func (h *ProjectHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	targetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid user ID"))
		return
	}

	var req memberRoleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.projects.UpdateMemberRole(r.Context(), project.ID, user.ID, targetID, models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: MEMBER_ROLE_UPDATED, Description: User %s set role %s for user %s in project %s",
		user.ID.Hex(), req.Role, targetID.Hex(), project.ID.Hex())
	writeData(w, http.StatusOK, "Member role updated successfully", map[string]interface{}{"project": updated})
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	targetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid user ID"))
		return
	}

	updated, err := h.projects.RemoveMember(r.Context(), project.ID, user.ID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Member removed successfully", map[string]interface{}{"project": updated})
}

func (h *ProjectHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	if err := h.projects.Leave(r.Context(), project.ID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Left project successfully", nil)
}
