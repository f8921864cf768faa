package sockets

import (
	"sync"
	"testing"
	"time"
)

func TestPresenceRegistry(t *testing.T) {
	r := NewPresenceRegistry()

	r.Add("sock-1", "user-a")
	r.Add("sock-2", "user-b")

	if got := r.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	entry, ok := r.Get("sock-1")
	if !ok || entry.UserID != "user-a" {
		t.Fatalf("Get(sock-1) = %+v, %v", entry, ok)
	}

	removed, ok := r.Remove("sock-1")
	if !ok || removed.UserID != "user-a" {
		t.Fatalf("Remove(sock-1) = %+v, %v", removed, ok)
	}
	if _, ok := r.Get("sock-1"); ok {
		t.Error("sock-1 should be gone after Remove")
	}
	if _, ok := r.Remove("sock-1"); ok {
		t.Error("second Remove should report missing")
	}
	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestTypingRegistryStartStop(t *testing.T) {
	r := NewTypingRegistry(nil)

	r.Start("proj-1", "user-a", "alice")
	if !r.IsTyping("proj-1", "user-a") {
		t.Fatal("user-a should be typing in proj-1")
	}
	if r.IsTyping("proj-2", "user-a") {
		t.Fatal("user-a should not be typing in proj-2")
	}

	if !r.Stop("proj-1", "user-a") {
		t.Fatal("Stop should report an entry was cleared")
	}
	if r.IsTyping("proj-1", "user-a") {
		t.Fatal("user-a should no longer be typing")
	}
	if r.Stop("proj-1", "user-a") {
		t.Fatal("second Stop should report nothing to clear")
	}
}

func TestTypingRegistryExpiry(t *testing.T) {
	var mu sync.Mutex
	stale := []string{}

	r := NewTypingRegistry(func(projectID, userID, username string) {
		mu.Lock()
		stale = append(stale, projectID+"/"+userID)
		mu.Unlock()
	})
	r.expiry = 20 * time.Millisecond

	r.Start("proj-1", "user-a", "alice")

	deadline := time.Now().Add(time.Second)
	for {
		if !r.IsTyping("proj-1", "user-a") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("typing entry never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stale) != 1 || stale[0] != "proj-1/user-a" {
		t.Errorf("stale callbacks = %v, want [proj-1/user-a]", stale)
	}
}

func TestTypingRegistryStartResetsTimer(t *testing.T) {
	fired := make(chan struct{}, 1)
	r := NewTypingRegistry(func(projectID, userID, username string) {
		fired <- struct{}{}
	})
	r.expiry = 50 * time.Millisecond

	r.Start("proj-1", "user-a", "alice")
	time.Sleep(30 * time.Millisecond)
	r.Start("proj-1", "user-a", "alice")
	time.Sleep(30 * time.Millisecond)

	// 60ms after the first Start, but only 30ms after the reset.
	select {
	case <-fired:
		t.Fatal("timer fired despite being reset")
	default:
	}
	if !r.IsTyping("proj-1", "user-a") {
		t.Fatal("entry should still be live after reset")
	}

	r.Stop("proj-1", "user-a")
}

func TestTypingRegistryStopSuppressesStaleCallback(t *testing.T) {
	fired := make(chan struct{}, 1)
	r := NewTypingRegistry(func(projectID, userID, username string) {
		fired <- struct{}{}
	})
	r.expiry = 20 * time.Millisecond

	r.Start("proj-1", "user-a", "alice")
	r.Stop("proj-1", "user-a")

	select {
	case <-fired:
		t.Fatal("onStale fired after an explicit Stop")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTypingRegistryClearUser(t *testing.T) {
	r := NewTypingRegistry(nil)

	r.Start("proj-1", "user-a", "alice")
	r.Start("proj-2", "user-a", "alice")
	r.Start("proj-1", "user-b", "bob")

	cleared := r.ClearUser("user-a")
	if len(cleared) != 2 {
		t.Fatalf("ClearUser cleared %v, want two projects", cleared)
	}
	if r.IsTyping("proj-1", "user-a") || r.IsTyping("proj-2", "user-a") {
		t.Error("user-a entries should all be gone")
	}
	if !r.IsTyping("proj-1", "user-b") {
		t.Error("user-b entry should survive")
	}

	if cleared := r.ClearUser("user-a"); len(cleared) != 0 {
		t.Errorf("second ClearUser = %v, want empty", cleared)
	}
}
