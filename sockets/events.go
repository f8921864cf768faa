package sockets

import (
	"encoding/json"
	"time"
)

// Client -> server events.
const (
	EventAuthenticate     = "authenticate"
	EventJoinProject      = "join-project"
	EventLeaveProject     = "leave-project"
	EventSendMessage      = "send-message"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"
	EventMessageDelivered = "message-delivered"
	EventMessageRead      = "message-read"
	EventTaskCreated      = "task-created"
	EventTaskUpdated      = "task-updated"
	EventTaskMoved        = "task-moved"
)

// Server -> client events.
const (
	EventAuthenticated     = "authenticated"
	EventAuthError         = "authentication-error"
	EventUserJoinedProject = "user-joined-project"
	EventUserLeftProject   = "user-left-project"
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventDeliveryConfirmed = "message-delivery-confirmed"
	EventReadConfirmed     = "message-read-confirmed"
	EventUserDisconnected  = "user-disconnected"
	EventMessageError      = "message-error"
)

// Envelope is the JSON frame exchanged on the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(event string, data interface{}) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Event: event, Data: raw}
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	ProjectID string `json:"projectId"`
}

type sendMessagePayload struct {
	Content     string             `json:"content"`
	ProjectID   string             `json:"projectId"`
	MessageType string             `json:"messageType"`
	Attachment  *attachmentPayload `json:"attachment,omitempty"`
	ReplyTo     string             `json:"replyTo,omitempty"`
	SentAt      string             `json:"sentAt,omitempty"`
}

type attachmentPayload struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName,omitempty"`
	Mimetype     string `json:"mimetype,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Path         string `json:"path,omitempty"`
}

type typingPayload struct {
	ProjectID string `json:"projectId"`
	Username  string `json:"username"`
}

type receiptPayload struct {
	MessageID string `json:"messageId"`
	ProjectID string `json:"projectId"`
}

type taskRelayPayload struct {
	ProjectID   string          `json:"projectId"`
	TaskID      string          `json:"taskId,omitempty"`
	Task        json.RawMessage `json:"task,omitempty"`
	NewStatus   string          `json:"newStatus,omitempty"`
	NewPosition *int            `json:"newPosition,omitempty"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	UpdatedBy   string          `json:"updatedBy,omitempty"`
	MovedBy     string          `json:"movedBy,omitempty"`
}

type presenceEvent struct {
	UserID    string    `json:"userId"`
	SocketID  string    `json:"socketId"`
	Timestamp time.Time `json:"timestamp"`
}

type typingEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

type deliveryConfirmedEvent struct {
	MessageID   string    `json:"messageId"`
	DeliveredTo string    `json:"deliveredTo"`
	Timestamp   time.Time `json:"timestamp"`
}

type readConfirmedEvent struct {
	MessageID string    `json:"messageId"`
	ReadBy    string    `json:"readBy"`
	Timestamp time.Time `json:"timestamp"`
}

type errorEvent struct {
	Message string `json:"message"`
}
