package sockets

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"team-collab/backend/utils"
)

// dialTestHub spins up a hub behind httptest and connects one client.
func dialTestHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(newEnvelope(event, data)); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readEvent reads frames until one matches the wanted event, failing on
// timeout. Unrelated frames (presence chatter) are skipped.
func readEvent(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if env.Event == want {
			return env.Data
		}
	}
}

func authenticate(t *testing.T, conn *websocket.Conn, userID string) {
	t.Helper()
	token, err := utils.GenerateToken(userID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	send(t, conn, EventAuthenticate, authenticatePayload{Token: token})
	readEvent(t, conn, EventAuthenticated)
}

func TestHubRejectsEventsBeforeAuthentication(t *testing.T) {
	t.Setenv("JWT_SECRET", "hub-test-secret")

	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialTestHub(t, srv)
	send(t, conn, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	readEvent(t, conn, EventAuthError)

	if hub.RoomSize("proj-1") != 0 {
		t.Error("unauthenticated client must not join rooms")
	}
}

func TestHubRejectsBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "hub-test-secret")

	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialTestHub(t, srv)
	send(t, conn, EventAuthenticate, authenticatePayload{Token: "garbage"})
	readEvent(t, conn, EventAuthError)

	if hub.ConnectedCount() != 0 {
		t.Error("failed authentication must not register presence")
	}
}

func TestHubJoinAndPresenceBroadcast(t *testing.T) {
	t.Setenv("JWT_SECRET", "hub-test-secret")

	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	alice := dialTestHub(t, srv)
	bob := dialTestHub(t, srv)
	authenticate(t, alice, "64f1c0ffee0000000000aaaa")
	authenticate(t, bob, "64f1c0ffee0000000000bbbb")

	send(t, alice, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	waitFor(t, func() bool { return hub.RoomSize("proj-1") == 1 })

	send(t, bob, EventJoinProject, roomPayload{ProjectID: "proj-1"})

	// Alice, already in the room, hears bob arrive. Bob hears nothing
	// about his own join.
	data := readEvent(t, alice, EventUserJoinedProject)
	var evt presenceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal presence event: %v", err)
	}
	if evt.UserID != "64f1c0ffee0000000000bbbb" {
		t.Errorf("joined userId = %q", evt.UserID)
	}

	if hub.RoomSize("proj-1") != 2 {
		t.Errorf("RoomSize = %d, want 2", hub.RoomSize("proj-1"))
	}
	if hub.ConnectedCount() != 2 {
		t.Errorf("ConnectedCount = %d, want 2", hub.ConnectedCount())
	}
}

func TestHubTypingBroadcastExcludesSender(t *testing.T) {
	t.Setenv("JWT_SECRET", "hub-test-secret")

	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	alice := dialTestHub(t, srv)
	bob := dialTestHub(t, srv)
	authenticate(t, alice, "64f1c0ffee0000000000aaaa")
	authenticate(t, bob, "64f1c0ffee0000000000bbbb")

	send(t, alice, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	send(t, bob, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	waitFor(t, func() bool { return hub.RoomSize("proj-1") == 2 })

	send(t, alice, EventTypingStart, typingPayload{ProjectID: "proj-1", Username: "alice"})

	data := readEvent(t, bob, EventUserTyping)
	var evt typingEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal typing event: %v", err)
	}
	if !evt.IsTyping || evt.Username != "alice" {
		t.Errorf("typing event = %+v", evt)
	}

	send(t, alice, EventTypingStop, typingPayload{ProjectID: "proj-1", Username: "alice"})
	data = readEvent(t, bob, EventUserTyping)
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal typing event: %v", err)
	}
	if evt.IsTyping {
		t.Error("expected isTyping=false after typing-stop")
	}
}

func TestHubDisconnectCleansUp(t *testing.T) {
	t.Setenv("JWT_SECRET", "hub-test-secret")

	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	alice := dialTestHub(t, srv)
	bob := dialTestHub(t, srv)
	authenticate(t, alice, "64f1c0ffee0000000000aaaa")
	authenticate(t, bob, "64f1c0ffee0000000000bbbb")

	send(t, alice, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	send(t, bob, EventJoinProject, roomPayload{ProjectID: "proj-1"})
	waitFor(t, func() bool { return hub.RoomSize("proj-1") == 2 })

	// Bob starts typing, then drops without a typing-stop.
	send(t, bob, EventTypingStart, typingPayload{ProjectID: "proj-1", Username: "bob"})
	readEvent(t, alice, EventUserTyping)

	bob.Close()

	// Alice hears the typing indicator clear and the disconnect.
	data := readEvent(t, alice, EventUserTyping)
	var typing typingEvent
	if err := json.Unmarshal(data, &typing); err != nil {
		t.Fatalf("unmarshal typing event: %v", err)
	}
	if typing.IsTyping {
		t.Error("disconnect should clear the typing indicator")
	}

	data = readEvent(t, alice, EventUserDisconnected)
	var gone presenceEvent
	if err := json.Unmarshal(data, &gone); err != nil {
		t.Fatalf("unmarshal presence event: %v", err)
	}
	if gone.UserID != "64f1c0ffee0000000000bbbb" {
		t.Errorf("disconnected userId = %q", gone.UserID)
	}

	waitFor(t, func() bool { return hub.RoomSize("proj-1") == 1 })
	waitFor(t, func() bool { return hub.ConnectedCount() == 1 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never became true")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
