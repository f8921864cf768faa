package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is a kanban column. Within one (project, status) column the
// position values form a dense zero-based sequence, ascending = top to
// bottom on the board.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type Attachment struct {
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	Mimetype     string             `bson:"mimetype" json:"mimetype"`
	Size         int64              `bson:"size" json:"size"`
	Path         string             `bson:"path" json:"path"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

type Comment struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Task struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title          string              `bson:"title" json:"title"`
	Description    string              `bson:"description" json:"description"`
	Status         TaskStatus          `bson:"status" json:"status"`
	Priority       Priority            `bson:"priority" json:"priority"`
	Project        primitive.ObjectID  `bson:"project" json:"project"`
	AssignedTo     *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedBy      primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	DueDate        *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	EstimatedHours *float64            `bson:"estimatedHours,omitempty" json:"estimatedHours,omitempty"`
	ActualHours    float64             `bson:"actualHours" json:"actualHours"`
	Tags           []string            `bson:"tags" json:"tags"`
	Attachments    []Attachment        `bson:"attachments" json:"attachments"`
	Comments       []Comment           `bson:"comments" json:"comments"`
	Position       int                 `bson:"position" json:"position"`
	CompletedAt    *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsOverdue reports whether the task passed its due date without reaching
// the done column.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return time.Now().After(*t.DueDate)
}
