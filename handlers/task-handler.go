package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/logging"
	"team-collab/backend/middleware"
	"team-collab/backend/models"
	"team-collab/backend/services"
	"team-collab/backend/utils"
)

type TaskHandler struct {
	tasks    *services.TaskService
	projects *services.ProjectService
}

func NewTaskHandler(tasks *services.TaskService, projects *services.ProjectService) *TaskHandler {
	return &TaskHandler{tasks: tasks, projects: projects}
}

// requireMembership loads the task's project and checks the caller belongs
// to it. Task routes are keyed by task id, so the membership gate cannot
// run as route middleware.
func (h *TaskHandler) requireMembership(r *http.Request, taskID primitive.ObjectID) (*models.Task, error) {
	user := middleware.UserFromContext(r.Context())

	task, err := h.tasks.GetTaskByID(r.Context(), taskID)
	if err != nil {
		return nil, err
	}

	project, err := h.projects.GetProjectByID(r.Context(), task.Project)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(user.ID) {
		return nil, models.NewAuthorizationError("access denied, you are not a member of this project")
	}
	return task, nil
}

type createTaskRequest struct {
	Title          string   `json:"title" validate:"required,min=2,max=200"`
	Description    string   `json:"description" validate:"omitempty,max=2000"`
	Status         string   `json:"status" validate:"omitempty,oneof=todo inprogress review done"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Project        string   `json:"project" validate:"required,len=24,hexadecimal"`
	AssignedTo     string   `json:"assignedTo" validate:"omitempty,len=24,hexadecimal"`
	DueDate        *string  `json:"dueDate"`
	EstimatedHours *float64 `json:"estimatedHours" validate:"omitempty,gte=0"`
	Tags           []string `json:"tags"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	projectID, err := primitive.ObjectIDFromHex(req.Project)
	if err != nil {
		writeError(w, models.NewValidationError("invalid project ID"))
		return
	}

	project, err := h.projects.GetProjectByID(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !project.IsMember(user.ID) {
		writeError(w, models.NewAuthorizationError("access denied, you are not a member of this project"))
		return
	}

	input := services.TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.TaskStatus(req.Status),
		Priority:       models.Priority(req.Priority),
		Project:        projectID,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
	}
	if req.AssignedTo != "" {
		assigneeID, err := primitive.ObjectIDFromHex(req.AssignedTo)
		if err != nil {
			writeError(w, models.NewValidationError("invalid assignee ID"))
			return
		}
		if !project.IsMember(assigneeID) {
			writeError(w, models.NewValidationError("assignee must be a member of the project"))
			return
		}
		input.AssignedTo = &assigneeID
	}
	if req.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			writeError(w, models.NewValidationError("dueDate must be an RFC3339 timestamp"))
			return
		}
		input.DueDate = &due
	}

	task, err := h.tasks.CreateTask(r.Context(), input, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s by user %s",
		task.ID.Hex(), projectID.Hex(), user.ID.Hex())
	writeData(w, http.StatusCreated, "Task created successfully", map[string]interface{}{"task": task})
}

// ListByProject returns the project's tasks ordered by column position.
func (h *TaskHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	q := r.URL.Query()
	filters := services.TaskFilters{
		Status:   models.TaskStatus(q.Get("status")),
		Priority: models.Priority(q.Get("priority")),
		Search:   q.Get("search"),
	}
	if assigned := q.Get("assignedTo"); assigned != "" {
		assigneeID, err := primitive.ObjectIDFromHex(assigned)
		if err != nil {
			writeError(w, models.NewValidationError("invalid assignee ID"))
			return
		}
		filters.AssignedTo = &assigneeID
	}
	if before := q.Get("dueBefore"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			writeError(w, models.NewValidationError("dueBefore must be an RFC3339 timestamp"))
			return
		}
		filters.DueBefore = &t
	}

	pagination := utils.GetPagination(q.Get("page"), q.Get("limit"), 50)
	tasks, total, err := h.tasks.GetTasksByProject(r.Context(), project.ID, filters, pagination.Skip, pagination.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	count := len(tasks)
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Count:   &count,
		Total:   &total,
		Data:    map[string]interface{}{"tasks": tasks},
	})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}

	task, err := h.requireMembership(r, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]interface{}{"task": task})
}

type updateTaskRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=2,max=200"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	Status         *string  `json:"status" validate:"omitempty,oneof=todo inprogress review done"`
	Priority       *string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo     *string  `json:"assignedTo" validate:"omitempty,len=24,hexadecimal"`
	DueDate        *string  `json:"dueDate"`
	EstimatedHours *float64 `json:"estimatedHours" validate:"omitempty,gte=0"`
	ActualHours    *float64 `json:"actualHours" validate:"omitempty,gte=0"`
	Tags           []string `json:"tags"`
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}

	if _, err := h.requireMembership(r, taskID); err != nil {
		writeError(w, err)
		return
	}

	var req updateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	update := bson.M{}
	if req.Title != nil {
		update["title"] = *req.Title
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Priority != nil {
		update["priority"] = *req.Priority
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			update["assignedTo"] = nil
		} else {
			assigneeID, err := primitive.ObjectIDFromHex(*req.AssignedTo)
			if err != nil {
				writeError(w, models.NewValidationError("invalid assignee ID"))
				return
			}
			update["assignedTo"] = assigneeID
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			update["dueDate"] = nil
		} else {
			due, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				writeError(w, models.NewValidationError("dueDate must be an RFC3339 timestamp"))
				return
			}
			update["dueDate"] = due
		}
	}
	if req.EstimatedHours != nil {
		update["estimatedHours"] = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		update["actualHours"] = *req.ActualHours
	}
	if req.Tags != nil {
		update["tags"] = req.Tags
	}

	var newStatus *models.TaskStatus
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		newStatus = &status
	}

	task, err := h.tasks.UpdateTask(r.Context(), taskID, update, newStatus)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Task updated successfully", map[string]interface{}{"task": task})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}

	if _, err := h.requireMembership(r, taskID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), taskID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted by user %s", taskID.Hex(), user.ID.Hex())
	writeData(w, http.StatusOK, "Task deleted successfully", nil)
}

type reorderRequest struct {
	TaskID      string `json:"taskId" validate:"required,len=24,hexadecimal"`
	NewStatus   string `json:"newStatus" validate:"required,oneof=todo inprogress review done"`
	NewPosition *int   `json:"newPosition" validate:"required,gte=0"`
	ProjectID   string `json:"projectId" validate:"required,len=24,hexadecimal"`
}

// Reorder moves a task on the board, keeping every touched column dense.
func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req reorderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	taskID, err := primitive.ObjectIDFromHex(req.TaskID)
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}
	projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		writeError(w, models.NewValidationError("invalid project ID"))
		return
	}

	project, err := h.projects.GetProjectByID(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !project.IsMember(user.ID) {
		writeError(w, models.NewAuthorizationError("access denied, you are not a member of this project"))
		return
	}

	task, err := h.tasks.Reorder(r.Context(), taskID, models.TaskStatus(req.NewStatus), *req.NewPosition, projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_REORDERED, Description: Task %s moved to %s:%d by user %s",
		taskID.Hex(), req.NewStatus, *req.NewPosition, user.ID.Hex())
	writeData(w, http.StatusOK, "Task reordered successfully", map[string]interface{}{"task": task})
}

type addCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	taskID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid task ID"))
		return
	}

	if _, err := h.requireMembership(r, taskID); err != nil {
		writeError(w, err)
		return
	}

	var req addCommentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.tasks.AddComment(r.Context(), taskID, user.ID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, "Comment added successfully", map[string]interface{}{"comment": comment})
}

func (h *TaskHandler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	stats, err := h.tasks.GetProjectStats(r.Context(), project.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "", stats)
}
