package server

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewDeviceRegistry(t *testing.T) {
	registry := NewDeviceRegistry()

	if registry == nil {
		t.Fatal("Expected registry to be created")
	}

	if registry.store == nil || registry.byDevice == nil {
		t.Error("Expected store maps to be initialized")
	}
}

func TestDeviceRegistry_Store(t *testing.T) {
	registry := NewDeviceRegistry()
	client := identified("session-1", 0x1234)

	if _, replaced := registry.Store(client); replaced {
		t.Error("Expected first store not to replace anything")
	}

	stored, exists := registry.Get("session-1")
	if !exists || stored != client {
		t.Error("Expected client to be stored by session id")
	}
	stored, exists = registry.GetByDevice(0x1234)
	if !exists || stored != client {
		t.Error("Expected client to be stored by device id")
	}
}

func TestDeviceRegistry_Store_Takeover(t *testing.T) {
	registry := NewDeviceRegistry()
	old := identified("session-old", 0x1234)
	fresh := identified("session-new", 0x1234)

	registry.Store(old)
	replacedClient, replaced := registry.Store(fresh)

	if !replaced || replacedClient != old {
		t.Fatal("Expected new session to replace old one")
	}
	if _, exists := registry.Get("session-old"); exists {
		t.Error("Expected old session id to be removed")
	}
	if got, _ := registry.GetByDevice(0x1234); got != fresh {
		t.Error("Expected device id to point at new session")
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 registered session, got %d", registry.Len())
	}
}

func TestDeviceRegistry_Store_SameSessionTwice(t *testing.T) {
	registry := NewDeviceRegistry()
	client := identified("session-1", 7)

	registry.Store(client)
	if _, replaced := registry.Store(client); replaced {
		t.Error("Expected repeated hello from the same session not to count as a takeover")
	}
}

func TestDeviceRegistry_Delete(t *testing.T) {
	registry := NewDeviceRegistry()
	client := identified("session-1", 1)

	registry.Store(client)
	registry.Delete("session-1")

	if _, exists := registry.Get("session-1"); exists {
		t.Error("Expected client to be deleted")
	}
	if _, exists := registry.GetByDevice(1); exists {
		t.Error("Expected device index to be cleared")
	}
}

func TestDeviceRegistry_Delete_StaleSession(t *testing.T) {
	registry := NewDeviceRegistry()
	old := identified("session-old", 9)
	fresh := identified("session-new", 9)

	registry.Store(old)
	registry.Store(fresh)
	registry.Delete("session-old")

	if got, exists := registry.GetByDevice(9); !exists || got != fresh {
		t.Error("Expected deleting a replaced session to keep the new one")
	}
}

func TestDeviceRegistry_Store_Reidentify(t *testing.T) {
	registry := NewDeviceRegistry()
	client := identified("session-1", 0x1111)
	registry.Store(client)

	client.metadata.DeviceID = 0x2222
	if _, replaced := registry.Store(client); replaced {
		t.Error("Expected re-identify not to report a takeover")
	}

	if _, exists := registry.GetByDevice(0x1111); exists {
		t.Error("Expected old device id to be released")
	}
	if got, _ := registry.GetByDevice(0x2222); got != client {
		t.Error("Expected new device id to point at the session")
	}

	registry.Delete("session-1")
	if _, exists := registry.GetByDevice(0x2222); exists {
		t.Error("Expected device id removed with the session")
	}
	if len(registry.byDevice) != 0 || len(registry.deviceOf) != 0 {
		t.Errorf("Expected empty indexes, got %d devices and %d sessions", len(registry.byDevice), len(registry.deviceOf))
	}
}

func TestDeviceRegistry_Delete_NotFound(t *testing.T) {
	registry := NewDeviceRegistry()
	registry.Delete("missing")

	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Len())
	}
}

func TestDeviceRegistry_List(t *testing.T) {
	registry := NewDeviceRegistry()
	for i := 0; i < 3; i++ {
		registry.Store(identified(fmt.Sprintf("session-%d", i), uint64(i)))
	}

	if clients := registry.List(); len(clients) != 3 {
		t.Errorf("Expected 3 clients, got %d", len(clients))
	}
}

func TestDeviceRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewDeviceRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("session-%d", id)
			registry.Store(identified(sessionID, uint64(id)))
			registry.Get(sessionID)
			registry.List()
			if id%2 == 0 {
				registry.Delete(sessionID)
			}
		}(i)
	}
	wg.Wait()

	if registry.Len() != 10 {
		t.Errorf("Expected 10 sessions left, got %d", registry.Len())
	}
}

func TestPeerID(t *testing.T) {
	if got := PeerID(0x1234); got != "0000000000001234" {
		t.Errorf("Expected 0000000000001234, got %s", got)
	}
	if got := PeerID(0x0123456789ABCDEF); got != "0123456789abcdef" {
		t.Errorf("Expected 0123456789abcdef, got %s", got)
	}
}
