package sockets

import (
	"sync"
	"time"
)

// PresenceRegistry tracks which authenticated user sits behind each
// connection. It is owned by the hub; nothing outside this package mutates
// it. Presence lives only in process memory.
type PresenceRegistry struct {
	mu          sync.RWMutex
	connections map[string]PresenceEntry
}

type PresenceEntry struct {
	UserID      string
	SocketID    string
	ConnectedAt time.Time
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{connections: make(map[string]PresenceEntry)}
}

func (r *PresenceRegistry) Add(socketID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[socketID] = PresenceEntry{
		UserID:      userID,
		SocketID:    socketID,
		ConnectedAt: time.Now(),
	}
}

func (r *PresenceRegistry) Remove(socketID string) (PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.connections[socketID]
	delete(r.connections, socketID)
	return entry, ok
}

func (r *PresenceRegistry) Get(socketID string) (PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.connections[socketID]
	return entry, ok
}

func (r *PresenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// typingExpiry is how long a typing entry survives without a fresh
// typing-start before the registry expires it on the client's behalf.
const typingExpiry = 3 * time.Second

// TypingRegistry tracks the set of currently-typing users per project.
// Entries auto-expire so a client that disconnects mid-keystroke does not
// leave a stuck indicator.
type TypingRegistry struct {
	mu      sync.Mutex
	typing  map[string]map[string]*typingEntry // project id -> user id
	expiry  time.Duration
	onStale func(projectID, userID, username string)
}

type typingEntry struct {
	username string
	timer    *time.Timer
}

// NewTypingRegistry builds a registry; onStale fires when an entry expires
// without an explicit typing-stop.
func NewTypingRegistry(onStale func(projectID, userID, username string)) *TypingRegistry {
	return &TypingRegistry{
		typing:  make(map[string]map[string]*typingEntry),
		expiry:  typingExpiry,
		onStale: onStale,
	}
}

// Start marks the user as typing in the project, resetting the expiry
// timer if already typing.
func (t *TypingRegistry) Start(projectID, userID, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.typing[projectID] == nil {
		t.typing[projectID] = make(map[string]*typingEntry)
	}

	if entry, ok := t.typing[projectID][userID]; ok {
		entry.timer.Reset(t.expiry)
		entry.username = username
		return
	}

	entry := &typingEntry{username: username}
	entry.timer = time.AfterFunc(t.expiry, func() {
		if t.remove(projectID, userID) && t.onStale != nil {
			t.onStale(projectID, userID, username)
		}
	})
	t.typing[projectID][userID] = entry
}

// Stop clears the user's typing entry; returns false if none existed.
func (t *TypingRegistry) Stop(projectID, userID string) bool {
	return t.remove(projectID, userID)
}

func (t *TypingRegistry) remove(projectID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.typing[projectID][userID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.typing[projectID], userID)
	if len(t.typing[projectID]) == 0 {
		delete(t.typing, projectID)
	}
	return true
}

// ClearUser drops the user's typing entries across every project and
// returns the projects that were cleared, for disconnect cleanup.
func (t *TypingRegistry) ClearUser(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cleared := []string{}
	for projectID, users := range t.typing {
		if entry, ok := users[userID]; ok {
			entry.timer.Stop()
			delete(users, userID)
			if len(users) == 0 {
				delete(t.typing, projectID)
			}
			cleared = append(cleared, projectID)
		}
	}
	return cleared
}

// IsTyping reports whether the user currently holds a typing entry.
func (t *TypingRegistry) IsTyping(projectID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.typing[projectID][userID]
	return ok
}
