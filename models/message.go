package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

type MessageAttachment struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"originalName,omitempty" json:"originalName,omitempty"`
	Mimetype     string `bson:"mimetype,omitempty" json:"mimetype,omitempty"`
	Size         int64  `bson:"size,omitempty" json:"size,omitempty"`
	Path         string `bson:"path,omitempty" json:"path,omitempty"`
}

type Reaction struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Emoji     string             `bson:"emoji" json:"emoji"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"readAt" json:"readAt"`
}

type EditEntry struct {
	Content  string    `bson:"content" json:"content"`
	EditedAt time.Time `bson:"editedAt" json:"editedAt"`
}

type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Content     string              `bson:"content" json:"content"`
	Sender      primitive.ObjectID  `bson:"sender" json:"sender"`
	Project     primitive.ObjectID  `bson:"project" json:"project"`
	MessageType MessageType         `bson:"messageType" json:"messageType"`
	Attachment  *MessageAttachment  `bson:"attachment,omitempty" json:"attachment,omitempty"`
	ReplyTo     *primitive.ObjectID `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	Reactions   []Reaction          `bson:"reactions" json:"reactions"`
	ReadBy      []ReadReceipt       `bson:"readBy" json:"readBy"`
	IsEdited    bool                `bson:"isEdited" json:"isEdited"`
	EditHistory []EditEntry         `bson:"editHistory,omitempty" json:"editHistory,omitempty"`
	IsDeleted   bool                `bson:"isDeleted" json:"isDeleted"`
	DeletedAt   *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// PopulatedMessage is a message with the sender profile joined in, the
// shape broadcast to rooms and returned from history reads.
type PopulatedMessage struct {
	Message `bson:",inline"`
	// SenderProfile replaces the raw sender id in serialized payloads.
	SenderProfile PublicProfile `bson:"senderProfile" json:"senderProfile"`
}

// ResolveContent fills in the content fallback for attachment-only
// messages: attachment filename first, then a generic placeholder.
func ResolveContent(content string, attachment *MessageAttachment) string {
	if content != "" {
		return content
	}
	if attachment != nil && attachment.Filename != "" {
		return attachment.Filename
	}
	return "Message"
}
