package sockets

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"team-collab/backend/logging"
	"team-collab/backend/models"
	"team-collab/backend/services"
	"team-collab/backend/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns every socket connection, the project rooms, and the presence
// and typing registries. All room membership changes go through its lock;
// message persistence happens on the calling connection's goroutine before
// the broadcast is queued, so per-room broadcast order equals persistence
// order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[*Client]bool

	presence *PresenceRegistry
	typing   *TypingRegistry
	messages *services.MessageService
}

func NewHub(messages *services.MessageService) *Hub {
	h := &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[*Client]bool),
		presence: NewPresenceRegistry(),
		messages: messages,
	}
	h.typing = NewTypingRegistry(func(projectID, userID, username string) {
		h.broadcastToRoom(projectID, newEnvelope(EventUserTyping, typingEvent{
			UserID:   userID,
			Username: username,
			IsTyping: false,
		}), nil)
	})
	return h
}

// ServeWS upgrades the HTTP request and runs the connection until it
// drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: SOCKET_UPGRADE_FAILED, Description: Websocket upgrade failed: %v", err)
		return
	}

	client := newClient(uuid.New().String(), h, conn)

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	logging.Logger.Infof("Event ID: SOCKET_CONNECTED, Description: New client connected: %s", client.ID)

	go client.writePump()
	client.readPump()
}

// unregister tears a connection down: presence entry, typing entries and
// room memberships are cleared, and every room it was in hears about it.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)

	joined := make([]string, 0, len(c.rooms))
	for projectID := range c.rooms {
		joined = append(joined, projectID)
		if members, ok := h.rooms[projectID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, projectID)
			}
		}
	}
	c.rooms = make(map[string]bool)
	close(c.done)
	h.mu.Unlock()

	c.conn.Close()

	logging.Logger.Infof("Event ID: SOCKET_DISCONNECTED, Description: Client disconnected: %s", c.ID)

	userID, username := c.identity()
	if userID == "" {
		return
	}

	h.presence.Remove(c.ID)

	// Expire any typing indicators the connection held.
	for _, projectID := range h.typing.ClearUser(userID) {
		h.broadcastToRoom(projectID, newEnvelope(EventUserTyping, typingEvent{
			UserID:   userID,
			Username: username,
			IsTyping: false,
		}), nil)
	}

	for _, projectID := range joined {
		h.broadcastToRoom(projectID, newEnvelope(EventUserDisconnected, presenceEvent{
			UserID:    userID,
			SocketID:  c.ID,
			Timestamp: time.Now(),
		}), nil)
	}
}

// broadcastToRoom queues an envelope for every room member except the
// excluded client (nil excludes nobody).
func (h *Hub) broadcastToRoom(projectID string, env Envelope, except *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[projectID]))
	for member := range h.rooms[projectID] {
		if member != except {
			members = append(members, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range members {
		select {
		case member.send <- env:
		default:
			logging.Logger.Warnf("Event ID: SOCKET_SEND_BUFFER_FULL, Description: Dropping slow socket %s", member.ID)
			go h.unregister(member)
		}
	}
}

// dispatch routes one inbound envelope. Every event except authenticate
// requires an authenticated connection.
func (h *Hub) dispatch(c *Client, env Envelope) {
	if env.Event == EventAuthenticate {
		h.handleAuthenticate(c, env.Data)
		return
	}

	if userID, _ := c.identity(); userID == "" {
		c.emit(EventAuthError, errorEvent{Message: "authentication required"})
		return
	}

	switch env.Event {
	case EventJoinProject:
		h.handleJoinProject(c, env.Data)
	case EventLeaveProject:
		h.handleLeaveProject(c, env.Data)
	case EventSendMessage:
		h.handleSendMessage(c, env.Data)
	case EventTypingStart:
		h.handleTyping(c, env.Data, true)
	case EventTypingStop:
		h.handleTyping(c, env.Data, false)
	case EventMessageDelivered:
		h.handleReceipt(c, env.Data, EventDeliveryConfirmed)
	case EventMessageRead:
		h.handleReceipt(c, env.Data, EventReadConfirmed)
	case EventTaskCreated, EventTaskUpdated, EventTaskMoved:
		h.handleTaskRelay(c, env.Event, env.Data)
	default:
		logging.Logger.Warnf("Event ID: SOCKET_UNKNOWN_EVENT, Description: Unknown event %q from %s", env.Event, c.ID)
	}
}

// handleAuthenticate verifies the token and attaches the user to the
// connection. A failed attempt leaves the connection open but
// unauthenticated.
func (h *Hub) handleAuthenticate(c *Client, data json.RawMessage) {
	var payload authenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// The client may send the bare token string instead of an object.
		if err := json.Unmarshal(data, &payload.Token); err != nil {
			c.emit(EventAuthError, errorEvent{Message: "invalid token"})
			return
		}
	}

	claims, err := utils.ValidateToken(payload.Token)
	if err != nil {
		logging.Logger.Warnf("Event ID: SOCKET_AUTH_FAILED, Description: Socket %s authentication failed: %v", c.ID, err)
		c.emit(EventAuthError, errorEvent{Message: "invalid token"})
		return
	}

	c.setUserID(claims.UserID)
	h.presence.Add(c.ID, claims.UserID)

	logging.Logger.Infof("Event ID: SOCKET_AUTHENTICATED, Description: User %s authenticated on socket %s", claims.UserID, c.ID)
	c.emit(EventAuthenticated, map[string]bool{"success": true})
}

// handleJoinProject adds the connection to the project room. Membership is
// not re-checked here; the REST path that led the client to the project is
// the trust boundary.
func (h *Hub) handleJoinProject(c *Client, data json.RawMessage) {
	var payload roomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ProjectID == "" {
		return
	}

	h.mu.Lock()
	if h.rooms[payload.ProjectID] == nil {
		h.rooms[payload.ProjectID] = make(map[*Client]bool)
	}
	h.rooms[payload.ProjectID][c] = true
	c.rooms[payload.ProjectID] = true
	h.mu.Unlock()

	userID, _ := c.identity()
	logging.Logger.Infof("Event ID: SOCKET_JOINED_ROOM, Description: User %s joined project %s", userID, payload.ProjectID)

	h.broadcastToRoom(payload.ProjectID, newEnvelope(EventUserJoinedProject, presenceEvent{
		UserID:    userID,
		SocketID:  c.ID,
		Timestamp: time.Now(),
	}), c)
}

func (h *Hub) handleLeaveProject(c *Client, data json.RawMessage) {
	var payload roomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ProjectID == "" {
		return
	}

	h.mu.Lock()
	if members, ok := h.rooms[payload.ProjectID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, payload.ProjectID)
		}
	}
	delete(c.rooms, payload.ProjectID)
	h.mu.Unlock()

	userID, _ := c.identity()
	h.broadcastToRoom(payload.ProjectID, newEnvelope(EventUserLeftProject, presenceEvent{
		UserID:    userID,
		SocketID:  c.ID,
		Timestamp: time.Now(),
	}), c)
}

type chatMessage struct {
	models.PopulatedMessage
	SentAt      string `json:"sentAt"`
	DeliveredAt string `json:"deliveredAt"`
}

type newMessageEvent struct {
	Message   chatMessage `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// handleSendMessage persists the message and then broadcasts it to the
// whole room, sender included. Persistence failures go back to the sender
// only; nothing is retried.
func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.emit(EventMessageError, errorEvent{Message: "malformed message payload"})
		return
	}

	userID, _ := c.identity()
	projectID, err := primitive.ObjectIDFromHex(payload.ProjectID)
	if err != nil {
		c.emit(EventMessageError, errorEvent{Message: "invalid project id"})
		return
	}
	senderID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		c.emit(EventMessageError, errorEvent{Message: "invalid sender id"})
		return
	}

	input := services.MessageInput{
		Content:     payload.Content,
		Project:     projectID,
		MessageType: models.MessageType(payload.MessageType),
	}
	if payload.MessageType == "" {
		input.MessageType = models.MessageText
	}
	if payload.Attachment != nil {
		input.Attachment = &models.MessageAttachment{
			Filename:     payload.Attachment.Filename,
			OriginalName: payload.Attachment.OriginalName,
			Mimetype:     payload.Attachment.Mimetype,
			Size:         payload.Attachment.Size,
			Path:         payload.Attachment.Path,
		}
	}
	if payload.ReplyTo != "" {
		if replyTo, err := primitive.ObjectIDFromHex(payload.ReplyTo); err == nil {
			input.ReplyTo = &replyTo
		}
	}

	message, err := h.messages.SaveChatMessage(context.Background(), input, senderID)
	if err != nil {
		logging.Logger.Errorf("Event ID: SOCKET_MESSAGE_SAVE_FAILED, Description: Failed to save message from %s: %v", userID, err)
		c.emit(EventMessageError, errorEvent{Message: "Failed to send message"})
		return
	}

	now := time.Now()
	sentAt := payload.SentAt
	if sentAt == "" {
		sentAt = now.Format(time.RFC3339)
	}

	h.broadcastToRoom(payload.ProjectID, newEnvelope(EventNewMessage, newMessageEvent{
		Message: chatMessage{
			PopulatedMessage: *message,
			SentAt:           sentAt,
			DeliveredAt:      now.Format(time.RFC3339),
		},
		Timestamp: now,
	}), nil)
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage, isTyping bool) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ProjectID == "" {
		return
	}

	userID, _ := c.identity()
	if isTyping {
		c.setUsername(payload.Username)
		h.typing.Start(payload.ProjectID, userID, payload.Username)
	} else {
		h.typing.Stop(payload.ProjectID, userID)
	}

	h.broadcastToRoom(payload.ProjectID, newEnvelope(EventUserTyping, typingEvent{
		UserID:   userID,
		Username: payload.Username,
		IsTyping: isTyping,
	}), c)
}

// handleReceipt relays delivery/read acknowledgements to the room. Purely
// advisory; nothing is persisted here.
func (h *Hub) handleReceipt(c *Client, data json.RawMessage, confirmEvent string) {
	var payload receiptPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ProjectID == "" {
		return
	}

	userID, _ := c.identity()
	var event interface{}
	if confirmEvent == EventDeliveryConfirmed {
		event = deliveryConfirmedEvent{
			MessageID:   payload.MessageID,
			DeliveredTo: userID,
			Timestamp:   time.Now(),
		}
	} else {
		event = readConfirmedEvent{
			MessageID: payload.MessageID,
			ReadBy:    userID,
			Timestamp: time.Now(),
		}
	}

	h.broadcastToRoom(payload.ProjectID, newEnvelope(confirmEvent, event), c)
}

// handleTaskRelay forwards board-sync events from the acting client to the
// rest of the room so boards update without a refetch. The reorder itself
// happened over REST; this only carries the result.
func (h *Hub) handleTaskRelay(c *Client, event string, data json.RawMessage) {
	var payload taskRelayPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ProjectID == "" {
		return
	}

	userID, _ := c.identity()
	out := map[string]interface{}{"timestamp": time.Now()}
	switch event {
	case EventTaskCreated:
		out["task"] = payload.Task
		out["createdBy"] = userID
	case EventTaskUpdated:
		out["task"] = payload.Task
		out["changes"] = payload.Changes
		out["updatedBy"] = userID
	case EventTaskMoved:
		out["taskId"] = payload.TaskID
		out["newStatus"] = payload.NewStatus
		out["newPosition"] = payload.NewPosition
		out["movedBy"] = userID
	}

	h.broadcastToRoom(payload.ProjectID, newEnvelope(event, out), c)
}

// RoomSize reports how many connections joined the project's room.
func (h *Hub) RoomSize(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// ConnectedCount reports the number of authenticated connections.
func (h *Hub) ConnectedCount() int {
	return h.presence.Count()
}
