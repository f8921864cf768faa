package sockets

import (
	"sync"
	"testing"
)

// The identity fields are written by the read goroutine while unregister
// may read them from another goroutine; concurrent access must be safe.
func TestClientIdentityConcurrentAccess(t *testing.T) {
	c := newClient("sock-1", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.setUserID("user-a")
				c.setUsername("alice")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.identity()
			}
		}()
	}
	wg.Wait()

	userID, username := c.identity()
	if userID != "user-a" || username != "alice" {
		t.Errorf("identity() = %q, %q", userID, username)
	}
}

func TestClientIdentityEmptyUntilSet(t *testing.T) {
	c := newClient("sock-1", nil, nil)
	if userID, username := c.identity(); userID != "" || username != "" {
		t.Errorf("fresh client identity = %q, %q, want empty", userID, username)
	}
}
