package services

import (
	"context"
	"time"

	"team-collab/backend/models"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// editWindow bounds how long after sending a message stays editable.
const editWindow = time.Hour

type MessageService struct {
	messagesCollection *mongo.Collection
	usersCollection    *mongo.Collection
	chatBreaker        *gobreaker.CircuitBreaker
}

func NewMessageService(messagesCollection, usersCollection *mongo.Collection, chatBreaker *gobreaker.CircuitBreaker) *MessageService {
	return &MessageService{
		messagesCollection: messagesCollection,
		usersCollection:    usersCollection,
		chatBreaker:        chatBreaker,
	}
}

type MessageInput struct {
	Content     string
	Project     primitive.ObjectID
	MessageType models.MessageType
	Attachment  *models.MessageAttachment
	ReplyTo     *primitive.ObjectID
}

// SaveMessage persists a message and returns it with the sender profile
// joined in. Attachment-only messages get the content fallback.
func (s *MessageService) SaveMessage(ctx context.Context, input MessageInput, senderID primitive.ObjectID) (*models.PopulatedMessage, error) {
	if input.MessageType == "" {
		input.MessageType = models.MessageText
	}
	if !input.MessageType.Valid() {
		return nil, models.NewValidationError("invalid message type: %s", input.MessageType)
	}

	content := models.ResolveContent(input.Content, input.Attachment)
	if input.Content == "" && input.Attachment == nil {
		return nil, models.NewValidationError("message content is required unless an attachment is present")
	}

	now := time.Now()
	message := models.Message{
		ID:          primitive.NewObjectID(),
		Content:     content,
		Sender:      senderID,
		Project:     input.Project,
		MessageType: input.MessageType,
		Attachment:  input.Attachment,
		ReplyTo:     input.ReplyTo,
		Reactions:   []models.Reaction{},
		ReadBy:      []models.ReadReceipt{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.messagesCollection.InsertOne(ctx, &message); err != nil {
		return nil, models.NewPersistenceError("save message", err)
	}

	return s.populate(ctx, message)
}

// SaveChatMessage is the socket-path variant of SaveMessage: the write runs
// through the chat circuit breaker so a failing store rejects sends fast
// instead of stalling the hub.
func (s *MessageService) SaveChatMessage(ctx context.Context, input MessageInput, senderID primitive.ObjectID) (*models.PopulatedMessage, error) {
	result, err := s.chatBreaker.Execute(func() (interface{}, error) {
		return s.SaveMessage(ctx, input, senderID)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, models.NewPersistenceError("save message", err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*models.PopulatedMessage), nil
}

func (s *MessageService) populate(ctx context.Context, message models.Message) (*models.PopulatedMessage, error) {
	var sender models.User
	err := s.usersCollection.FindOne(ctx, bson.M{"_id": message.Sender}).Decode(&sender)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, models.NewPersistenceError("populate sender", err)
	}
	return &models.PopulatedMessage{
		Message:       message,
		SenderProfile: sender.PublicProfile(),
	}, nil
}

// MessageHistoryOptions narrows a project history read.
type MessageHistoryOptions struct {
	Skip        int
	Limit       int
	MessageType models.MessageType
	BeforeDate  *time.Time
}

// GetMessagesByProject returns non-deleted messages, newest first, with
// sender profiles joined in.
func (s *MessageService) GetMessagesByProject(ctx context.Context, projectID primitive.ObjectID, opts MessageHistoryOptions) ([]models.PopulatedMessage, int64, error) {
	query := bson.M{"project": projectID, "isDeleted": false}
	if opts.MessageType != "" {
		query["messageType"] = opts.MessageType
	}
	if opts.BeforeDate != nil {
		query["createdAt"] = bson.M{"$lt": *opts.BeforeDate}
	}

	total, err := s.messagesCollection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, models.NewPersistenceError("count messages", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(opts.Skip))
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.messagesCollection.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, models.NewPersistenceError("list messages", err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, models.NewPersistenceError("decode messages", err)
	}

	profiles, err := s.senderProfiles(ctx, messages)
	if err != nil {
		return nil, 0, err
	}

	populated := make([]models.PopulatedMessage, 0, len(messages))
	for _, m := range messages {
		populated = append(populated, models.PopulatedMessage{
			Message:       m,
			SenderProfile: profiles[m.Sender],
		})
	}
	return populated, total, nil
}

func (s *MessageService) senderProfiles(ctx context.Context, messages []models.Message) (map[primitive.ObjectID]models.PublicProfile, error) {
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, m := range messages {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			ids = append(ids, m.Sender)
		}
	}

	profiles := map[primitive.ObjectID]models.PublicProfile{}
	if len(ids) == 0 {
		return profiles, nil
	}

	cursor, err := s.usersCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, models.NewPersistenceError("populate senders", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, models.NewPersistenceError("decode senders", err)
	}
	for _, u := range users {
		profiles[u.ID] = u.PublicProfile()
	}
	return profiles, nil
}

func (s *MessageService) getMessage(ctx context.Context, messageID primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := s.messagesCollection.FindOne(ctx, bson.M{"_id": messageID}).Decode(&message)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("message")
	}
	if err != nil {
		return nil, models.NewPersistenceError("fetch message", err)
	}
	return &message, nil
}

// EditMessage rewrites the content, recording the previous content in the
// edit history. Only the sender may edit, and only within the edit window.
func (s *MessageService) EditMessage(ctx context.Context, messageID, userID primitive.ObjectID, content string) (*models.PopulatedMessage, error) {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Sender != userID {
		return nil, models.NewAuthorizationError("only the sender may edit a message")
	}
	if time.Since(message.CreatedAt) > editWindow {
		return nil, models.NewValidationError("cannot edit messages older than 1 hour")
	}
	if content == "" {
		return nil, models.NewValidationError("message content is required")
	}

	entry := models.EditEntry{Content: message.Content, EditedAt: time.Now()}
	var updated models.Message
	err = s.messagesCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{
			"$set":  bson.M{"content": content, "isEdited": true, "updatedAt": time.Now()},
			"$push": bson.M{"editHistory": entry},
		},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("edit message", err)
	}
	return s.populate(ctx, updated)
}

// DeleteMessage soft-deletes: the document stays, flagged and timestamped.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, userID primitive.ObjectID) error {
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.Sender != userID {
		return models.NewAuthorizationError("only the sender may delete a message")
	}

	_, err = s.messagesCollection.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": time.Now(), "updatedAt": time.Now()}})
	if err != nil {
		return models.NewPersistenceError("delete message", err)
	}
	return nil
}

// AddReaction records a (user, emoji) reaction once.
func (s *MessageService) AddReaction(ctx context.Context, messageID, userID primitive.ObjectID, emoji string) ([]models.Reaction, error) {
	if emoji == "" {
		return nil, models.NewValidationError("emoji is required")
	}
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	for _, r := range message.Reactions {
		if r.User == userID && r.Emoji == emoji {
			return message.Reactions, nil
		}
	}

	reaction := models.Reaction{User: userID, Emoji: emoji, CreatedAt: time.Now()}
	var updated models.Message
	err = s.messagesCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{"$push": bson.M{"reactions": reaction}},
		mongoReturnAfter()).Decode(&updated)
	if err != nil {
		return nil, models.NewPersistenceError("add reaction", err)
	}
	return updated.Reactions, nil
}

func (s *MessageService) RemoveReaction(ctx context.Context, messageID, userID primitive.ObjectID, emoji string) ([]models.Reaction, error) {
	var updated models.Message
	err := s.messagesCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{"$pull": bson.M{"reactions": bson.M{"user": userID, "emoji": emoji}}},
		mongoReturnAfter()).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("message")
	}
	if err != nil {
		return nil, models.NewPersistenceError("remove reaction", err)
	}
	return updated.Reactions, nil
}

// MarkAsRead appends a read receipt unless the user already has one. This
// is the durable read path; the socket read events stay advisory.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID, userID primitive.ObjectID) error {
	receipt := models.ReadReceipt{User: userID, ReadAt: time.Now()}
	result, err := s.messagesCollection.UpdateOne(ctx,
		bson.M{"_id": messageID, "readBy.user": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"readBy": receipt}})
	if err != nil {
		return models.NewPersistenceError("mark message read", err)
	}
	if result.MatchedCount == 0 {
		// Either already read or missing; only the latter is an error.
		if _, err := s.getMessage(ctx, messageID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MessageService) GetUnreadCount(ctx context.Context, projectID, userID primitive.ObjectID) (int64, error) {
	count, err := s.messagesCollection.CountDocuments(ctx, bson.M{
		"project":    projectID,
		"isDeleted":  false,
		"readBy.user": bson.M{"$ne": userID},
	})
	if err != nil {
		return 0, models.NewPersistenceError("count unread messages", err)
	}
	return count, nil
}

// DeleteMessagesByProject removes every message of a deleted project.
func (s *MessageService) DeleteMessagesByProject(ctx context.Context, projectID primitive.ObjectID) error {
	if _, err := s.messagesCollection.DeleteMany(ctx, bson.M{"project": projectID}); err != nil {
		return models.NewPersistenceError("delete project messages", err)
	}
	return nil
}
