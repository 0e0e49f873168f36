package server

import (
	"sync"
)

// DeviceRegistry indexes identified sessions by session id and by device id.
type DeviceRegistry struct {
	mu       sync.RWMutex
	store    map[string]Client
	byDevice map[uint64]Client
	// device id each session last identified as
	deviceOf map[string]uint64
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{
		store:    make(map[string]Client),
		byDevice: make(map[uint64]Client),
		deviceOf: make(map[string]uint64),
	}
}

// Store registers client under its device id and returns the session it
// replaced, if any. A session that re-identifies with another device id
// gives up its previous one.
func (r *DeviceRegistry) Store(client Client) (Client, bool) {
	meta := client.Meta()
	meta.Mu.RLock()
	id, deviceID := meta.Id, meta.DeviceID
	meta.Mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.deviceOf[id]; ok && prev != deviceID && r.byDevice[prev] == client {
		delete(r.byDevice, prev)
	}
	old, replaced := r.byDevice[deviceID]
	if replaced && old != client {
		oldID := old.Meta().Id
		delete(r.store, oldID)
		delete(r.deviceOf, oldID)
	} else {
		replaced = false
	}
	r.store[id] = client
	r.byDevice[deviceID] = client
	r.deviceOf[id] = deviceID
	return old, replaced
}

func (r *DeviceRegistry) Get(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.store[id]
	return val, ok
}

func (r *DeviceRegistry) GetByDevice(deviceID uint64) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.byDevice[deviceID]
	return val, ok
}

// Delete removes the session id. The device index is only cleared if it
// still points at that session.
func (r *DeviceRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.store[id]
	if !ok {
		return
	}
	delete(r.store, id)
	deviceID := r.deviceOf[id]
	delete(r.deviceOf, id)
	if current, ok := r.byDevice[deviceID]; ok && current == client {
		delete(r.byDevice, deviceID)
	}
}

func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

func (r *DeviceRegistry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]Client, 0, len(r.store))
	for _, client := range r.store {
		clients = append(clients, client)
	}

	return clients
}
