package services

import (
	"context"
	"time"

	"team-collab/backend/logging"
	"team-collab/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskService struct {
	client          *mongo.Client
	tasksCollection *mongo.Collection
}

func NewTaskService(client *mongo.Client, tasksCollection *mongo.Collection) *TaskService {
	return &TaskService{
		client:          client,
		tasksCollection: tasksCollection,
	}
}

// TaskInput carries the caller-controlled fields for create and update.
type TaskInput struct {
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.Priority
	Project        primitive.ObjectID
	AssignedTo     *primitive.ObjectID
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
}

// CreateTask appends the task to the end of its column: position is the
// current column maximum plus one, or zero for an empty column.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput, createdBy primitive.ObjectID) (*models.Task, error) {
	if input.Status == "" {
		input.Status = models.StatusTodo
	}
	if !input.Status.Valid() {
		return nil, models.NewValidationError("invalid task status: %s", input.Status)
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	position, err := s.nextPosition(ctx, input.Project, input.Status)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:             primitive.NewObjectID(),
		Title:          input.Title,
		Description:    input.Description,
		Status:         input.Status,
		Priority:       input.Priority,
		Project:        input.Project,
		AssignedTo:     input.AssignedTo,
		CreatedBy:      createdBy,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		Tags:           input.Tags,
		Attachments:    []models.Attachment{},
		Comments:       []models.Comment{},
		Position:       position,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Status == models.StatusDone {
		task.CompletedAt = &now
	}

	if _, err := s.tasksCollection.InsertOne(ctx, task); err != nil {
		return nil, models.NewPersistenceError("create task", err)
	}

	return task, nil
}

func (s *TaskService) nextPosition(ctx context.Context, projectID primitive.ObjectID, status models.TaskStatus) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
	var last models.Task
	err := s.tasksCollection.FindOne(ctx, bson.M{"project": projectID, "status": status}, opts).Decode(&last)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, models.NewPersistenceError("read column tail", err)
	}
	return last.Position + 1, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := s.tasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("task")
	}
	if err != nil {
		return nil, models.NewPersistenceError("fetch task", err)
	}
	return &task, nil
}

// TaskFilters narrows a project task listing.
type TaskFilters struct {
	Status     models.TaskStatus
	AssignedTo *primitive.ObjectID
	Priority   models.Priority
	DueBefore  *time.Time
	Search     string
}

// GetTasksByProject returns the project's tasks sorted by position, top of
// each column first.
func (s *TaskService) GetTasksByProject(ctx context.Context, projectID primitive.ObjectID, filters TaskFilters, skip, limit int) ([]models.Task, int64, error) {
	query := bson.M{"project": projectID}
	if filters.Status != "" {
		query["status"] = filters.Status
	}
	if filters.AssignedTo != nil {
		query["assignedTo"] = *filters.AssignedTo
	}
	if filters.Priority != "" {
		query["priority"] = filters.Priority
	}
	if filters.DueBefore != nil {
		query["dueDate"] = bson.M{"$lte": *filters.DueBefore}
	}
	if filters.Search != "" {
		pattern := primitive.Regex{Pattern: regexQuoteMeta(filters.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	total, err := s.tasksCollection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, models.NewPersistenceError("count tasks", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "position", Value: 1}, {Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.tasksCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, models.NewPersistenceError("list tasks", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, models.NewPersistenceError("decode tasks", err)
	}
	return tasks, total, nil
}

// UpdateTask applies a partial update. A status change through this path
// appends the task to the end of the new column; in-column ordering is the
// reorder operation's job.
func (s *TaskService) UpdateTask(ctx context.Context, taskID primitive.ObjectID, update bson.M, newStatus *models.TaskStatus) (*models.Task, error) {
	current, err := s.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if newStatus != nil && *newStatus != current.Status {
		if !newStatus.Valid() {
			return nil, models.NewValidationError("invalid task status: %s", *newStatus)
		}
		position, err := s.nextPosition(ctx, current.Project, *newStatus)
		if err != nil {
			return nil, err
		}
		update["status"] = *newStatus
		update["position"] = position

		if *newStatus == models.StatusDone {
			update["completedAt"] = time.Now()
		} else {
			update["completedAt"] = nil
		}
	}
	update["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var task models.Task
	err = s.tasksCollection.FindOneAndUpdate(ctx, bson.M{"_id": taskID}, bson.M{"$set": update}, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("task")
	}
	if err != nil {
		return nil, models.NewPersistenceError("update task", err)
	}
	return &task, nil
}

// DeleteTask removes a task; only its creator or current assignee may.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID primitive.ObjectID) error {
	task, err := s.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}

	canDelete := task.CreatedBy == userID || (task.AssignedTo != nil && *task.AssignedTo == userID)
	if !canDelete {
		return models.NewAuthorizationError("only the task creator or assignee may delete a task")
	}

	if _, err := s.tasksCollection.DeleteOne(ctx, bson.M{"_id": taskID}); err != nil {
		return models.NewPersistenceError("delete task", err)
	}
	return nil
}

// Reorder moves a task to (newStatus, newPosition) and shifts neighbours so
// every touched column stays a dense zero-based sequence. Shifts and the
// final task write run inside one session transaction; when the deployment
// cannot open a transaction (standalone server) the writes are applied
// sequentially, which leaves a window where a crash between them breaks
// column density.
func (s *TaskService) Reorder(ctx context.Context, taskID primitive.ObjectID, newStatus models.TaskStatus, newPosition int, projectID primitive.ObjectID) (*models.Task, error) {
	if !newStatus.Valid() {
		return nil, models.NewValidationError("invalid task status: %s", newStatus)
	}
	if newPosition < 0 {
		return nil, models.NewValidationError("newPosition must be a non-negative integer")
	}

	task, err := s.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	shifts := PlanReorder(task.Status, task.Position, newStatus, newPosition)

	session, err := s.client.StartSession()
	if err != nil {
		logging.Logger.Warnf("Event ID: REORDER_NO_SESSION, Description: Falling back to sequential reorder writes: %v", err)
		return s.applyReorder(ctx, task, shifts, newStatus, newPosition, projectID)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.applyReorder(sc, task, shifts, newStatus, newPosition, projectID)
	})
	if err != nil {
		// Standalone servers reject transactions outright; apply the
		// writes sequentially in that degraded mode.
		if cmdErr, ok := err.(mongo.CommandError); ok && cmdErr.Code == 20 {
			logging.Logger.Warnf("Event ID: REORDER_TXN_UNAVAILABLE, Description: Transactions unsupported, applying reorder sequentially: %v", err)
			return s.applyReorder(ctx, task, shifts, newStatus, newPosition, projectID)
		}
		return nil, models.NewPersistenceError("reorder task", err)
	}
	return result.(*models.Task), nil
}

func (s *TaskService) applyReorder(ctx context.Context, task *models.Task, shifts []ShiftRange, newStatus models.TaskStatus, newPosition int, projectID primitive.ObjectID) (*models.Task, error) {
	for _, shift := range shifts {
		filter := bson.M{
			"project": projectID,
			"status":  shift.Status,
		}
		if shift.To == NoUpperBound {
			filter["position"] = bson.M{"$gte": shift.From}
		} else {
			filter["position"] = bson.M{"$gte": shift.From, "$lte": shift.To}
		}

		if _, err := s.tasksCollection.UpdateMany(ctx, filter, bson.M{"$inc": bson.M{"position": shift.Delta}}); err != nil {
			return nil, models.NewPersistenceError("shift column positions", err)
		}
	}

	update := bson.M{
		"status":    newStatus,
		"position":  newPosition,
		"updatedAt": time.Now(),
	}
	if newStatus == models.StatusDone && task.CompletedAt == nil {
		update["completedAt"] = time.Now()
	} else if newStatus != models.StatusDone {
		update["completedAt"] = nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var moved models.Task
	err := s.tasksCollection.FindOneAndUpdate(ctx, bson.M{"_id": task.ID}, bson.M{"$set": update}, opts).Decode(&moved)
	if err != nil {
		return nil, models.NewPersistenceError("write moved task", err)
	}
	return &moved, nil
}

// AddComment appends a comment and returns it.
func (s *TaskService) AddComment(ctx context.Context, taskID, userID primitive.ObjectID, text string) (*models.Comment, error) {
	comment := models.Comment{
		User:      userID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	result, err := s.tasksCollection.UpdateOne(ctx,
		bson.M{"_id": taskID},
		bson.M{
			"$push": bson.M{"comments": comment},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return nil, models.NewPersistenceError("add comment", err)
	}
	if result.MatchedCount == 0 {
		return nil, models.NewNotFoundError("task")
	}
	return &comment, nil
}

// AddAttachment records an uploaded file on the task.
func (s *TaskService) AddAttachment(ctx context.Context, taskID primitive.ObjectID, attachment models.Attachment) error {
	result, err := s.tasksCollection.UpdateOne(ctx,
		bson.M{"_id": taskID},
		bson.M{
			"$push": bson.M{"attachments": attachment},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return models.NewPersistenceError("add attachment", err)
	}
	if result.MatchedCount == 0 {
		return models.NewNotFoundError("task")
	}
	return nil
}

// StatusStat is one per-column row of the project statistics aggregation.
type StatusStat struct {
	Status            models.TaskStatus `bson:"_id" json:"status"`
	Count             int               `bson:"count" json:"count"`
	AvgEstimatedHours float64           `bson:"avgEstimatedHours" json:"avgEstimatedHours"`
	TotalActualHours  float64           `bson:"totalActualHours" json:"totalActualHours"`
}

type ProjectTaskStats struct {
	Stats        []StatusStat `json:"stats"`
	TotalTasks   int64        `json:"totalTasks"`
	OverdueCount int64        `json:"overdueCount"`
}

func (s *TaskService) GetProjectStats(ctx context.Context, projectID primitive.ObjectID) (*ProjectTaskStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project": projectID}}},
		{{Key: "$group", Value: bson.M{
			"_id":               "$status",
			"count":             bson.M{"$sum": 1},
			"avgEstimatedHours": bson.M{"$avg": "$estimatedHours"},
			"totalActualHours":  bson.M{"$sum": "$actualHours"},
		}}},
	}

	cursor, err := s.tasksCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.NewPersistenceError("aggregate task stats", err)
	}
	defer cursor.Close(ctx)

	stats := []StatusStat{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, models.NewPersistenceError("decode task stats", err)
	}

	overdue, err := s.tasksCollection.CountDocuments(ctx, bson.M{
		"project": projectID,
		"dueDate": bson.M{"$lt": time.Now()},
		"status":  bson.M{"$ne": models.StatusDone},
	})
	if err != nil {
		return nil, models.NewPersistenceError("count overdue tasks", err)
	}

	total, err := s.tasksCollection.CountDocuments(ctx, bson.M{"project": projectID})
	if err != nil {
		return nil, models.NewPersistenceError("count tasks", err)
	}

	return &ProjectTaskStats{Stats: stats, TotalTasks: total, OverdueCount: overdue}, nil
}

// DeleteTasksByProject removes every task of a deleted project.
func (s *TaskService) DeleteTasksByProject(ctx context.Context, projectID primitive.ObjectID) error {
	if _, err := s.tasksCollection.DeleteMany(ctx, bson.M{"project": projectID}); err != nil {
		return models.NewPersistenceError("delete project tasks", err)
	}
	return nil
}

func regexQuoteMeta(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(special); j++ {
			if s[i] == special[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
