package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/middleware"
	"team-collab/backend/models"
	"team-collab/backend/services"
	"team-collab/backend/utils"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// History returns the project chat history, newest first.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	q := r.URL.Query()
	pagination := utils.GetPagination(q.Get("page"), q.Get("limit"), 50)
	opts := services.MessageHistoryOptions{
		Skip:        pagination.Skip,
		Limit:       pagination.Limit,
		MessageType: models.MessageType(q.Get("messageType")),
	}
	if before := q.Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			writeError(w, models.NewValidationError("before must be an RFC3339 timestamp"))
			return
		}
		opts.BeforeDate = &t
	}

	messages, total, err := h.messages.GetMessagesByProject(r.Context(), project.ID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	count := len(messages)
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Count:   &count,
		Total:   &total,
		Data:    map[string]interface{}{"messages": messages},
	})
}

type sendMessageRequest struct {
	Content     string `json:"content" validate:"omitempty,max=5000"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=text file image system"`
	ReplyTo     string `json:"replyTo" validate:"omitempty,len=24,hexadecimal"`
	Attachment  *struct {
		Filename     string `json:"filename" validate:"required"`
		OriginalName string `json:"originalName"`
		Mimetype     string `json:"mimetype"`
		Size         int64  `json:"size"`
		Path         string `json:"path" validate:"required"`
	} `json:"attachment"`
}

// Send is the durable REST send path; socket delivery is advisory on top.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	var req sendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := services.MessageInput{
		Content:     req.Content,
		Project:     project.ID,
		MessageType: models.MessageType(req.MessageType),
	}
	if req.Attachment != nil {
		input.Attachment = &models.MessageAttachment{
			Filename:     req.Attachment.Filename,
			OriginalName: req.Attachment.OriginalName,
			Mimetype:     req.Attachment.Mimetype,
			Size:         req.Attachment.Size,
			Path:         req.Attachment.Path,
		}
	}
	if req.ReplyTo != "" {
		replyID, err := primitive.ObjectIDFromHex(req.ReplyTo)
		if err != nil {
			writeError(w, models.NewValidationError("invalid replyTo ID"))
			return
		}
		input.ReplyTo = &replyID
	}

	message, err := h.messages.SaveMessage(r.Context(), input, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, "Message sent successfully", map[string]interface{}{"message": message})
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid message ID"))
		return
	}

	var req editMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	message, err := h.messages.EditMessage(r.Context(), messageID, user.ID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Message edited successfully", map[string]interface{}{"message": message})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid message ID"))
		return
	}

	if err := h.messages.DeleteMessage(r.Context(), messageID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Message deleted successfully", nil)
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func (h *MessageHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid message ID"))
		return
	}

	var req reactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reactions, err := h.messages.AddReaction(r.Context(), messageID, user.ID, req.Emoji)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Reaction added", map[string]interface{}{"reactions": reactions})
}

func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid message ID"))
		return
	}

	emoji := r.URL.Query().Get("emoji")
	if emoji == "" {
		writeError(w, models.NewValidationError("emoji query parameter is required"))
		return
	}

	reactions, err := h.messages.RemoveReaction(r.Context(), messageID, user.ID, emoji)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Reaction removed", map[string]interface{}{"reactions": reactions})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, models.NewValidationError("invalid message ID"))
		return
	}

	if err := h.messages.MarkAsRead(r.Context(), messageID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Message marked as read", nil)
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	project := middleware.ProjectFromContext(r.Context())

	count, err := h.messages.GetUnreadCount(r.Context(), project.ID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]interface{}{"unreadCount": count})
}
