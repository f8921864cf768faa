package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Member struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     Role               `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	Members     []Member           `bson:"members" json:"members"`
	Status      ProjectStatus      `bson:"status" json:"status"`
	Priority    Priority           `bson:"priority" json:"priority"`
	StartDate   *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Tags        []string           `bson:"tags" json:"tags"`
	Color       string             `bson:"color" json:"color"`
	IsPrivate   bool               `bson:"isPrivate" json:"isPrivate"`
	InviteCode  string             `bson:"inviteCode,omitempty" json:"inviteCode,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsMember reports whether the user id appears in the members list.
func (p *Project) IsMember(userID primitive.ObjectID) bool {
	for _, m := range p.Members {
		if m.User == userID {
			return true
		}
	}
	return false
}

// GetRole returns the member's role, or "" when not a member.
func (p *Project) GetRole(userID primitive.ObjectID) Role {
	for _, m := range p.Members {
		if m.User == userID {
			return m.Role
		}
	}
	return ""
}

// CanEdit reports whether the user's role carries edit rights.
func (p *Project) CanEdit(userID primitive.ObjectID) bool {
	return p.GetRole(userID).CanEdit()
}
