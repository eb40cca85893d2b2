/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bp

import (
	"context"
	"sync"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

// ClientHandle is the daemon's view of one registered client's control
// segment: enough to move payloads in and out without this package needing
// to know anything about shared memory, per spec.md §4.3's separation
// between the BP service interface and its shared-memory realization.
// bpshm.Segment implements this interface.
type ClientHandle interface {
	ProtocolId() wiretypes.BPProtocolId
	ProtocolName() string
	MaxPayloadSize() uint16
	QueueingMode() QueueingMode
	GenerateTxConfirms() bool
	Active() bool
	SetActive(bool)

	// ShmName and ChunkSize let the Manager tell a registering client which
	// control segment to attach to and how its chunks are sized.
	ShmName() string
	ChunkSize() int

	// PopTxRequest returns the next queued outgoing payload, if any.
	PopTxRequest(ctx context.Context) (payload []byte, ok bool, err error)
	// PushRxIndication delivers a received payload to the client.
	PushRxIndication(ctx context.Context, payload []byte) error
	// PushTxConfirm notifies the client that a submitted payload was sent.
	PushTxConfirm(ctx context.Context) error

	Close() error
}

// MaxMaxPayloadSize bounds a client's declared maximum payload size; it
// must still leave room for the BP and per-payload headers within one
// beacon, per spec.md §6's maxBeaconSize config key.
const MaxMaxPayloadSize = 4096

// Registry is the daemon's table of registered client protocols, guarded by
// a single mutex since registration churns far less often than the
// transmitter/receiver hot paths that read it.
type Registry struct {
	mu      sync.RWMutex
	clients map[wiretypes.BPProtocolId]ClientHandle
	order   []wiretypes.BPProtocolId // registration order, for beacon-assembly priority
}

// NewRegistry returns an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[wiretypes.BPProtocolId]ClientHandle)}
}

// Register admits handle into the registry, rejecting a protocol id that is
// already registered, an oversized payload declaration, or an unrecognized
// queueing mode, per spec.md §4.5's RegisterProtocol preconditions.
func (r *Registry) Register(handle ClientHandle) Status {
	if handle.MaxPayloadSize() == 0 || handle.MaxPayloadSize() > MaxMaxPayloadSize {
		return StatusIllegalMaxPayloadSize
	}
	if !handle.QueueingMode().IsValid() {
		return StatusUnknownQueueingMode
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[handle.ProtocolId()]; exists {
		return StatusProtocolAlreadyRegistered
	}
	r.clients[handle.ProtocolId()] = handle
	r.order = append(r.order, handle.ProtocolId())
	return StatusOK
}

// Deregister removes and closes a client's control segment.
func (r *Registry) Deregister(id wiretypes.BPProtocolId) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, exists := r.clients[id]
	if !exists {
		return StatusUnknownProtocol
	}
	delete(r.clients, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	_ = h.Close()
	return StatusOK
}

// Get returns the handle registered for id, if any.
func (r *Registry) Get(id wiretypes.BPProtocolId) (ClientHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.clients[id]
	return h, ok
}

// List returns the registered protocol ids in registration order, the
// order beacon assembly visits them in.
func (r *Registry) List() []wiretypes.BPProtocolId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wiretypes.BPProtocolId, len(r.order))
	copy(out, r.order)
	return out
}

// SetActive flips a registered client's active flag, the Activate/Deactivate
// pair of spec.md §4.5: an inactive client's queues are left untouched by
// the transmitter and receiver threads.
func (r *Registry) SetActive(id wiretypes.BPProtocolId, active bool) Status {
	r.mu.RLock()
	h, exists := r.clients[id]
	r.mu.RUnlock()
	if !exists {
		return StatusUnknownProtocol
	}
	h.SetActive(active)
	return StatusOK
}

// ShutDown deregisters every client, closing their control segments.
func (r *Registry) ShutDown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.clients {
		_ = h.Close()
	}
	r.clients = make(map[wiretypes.BPProtocolId]ClientHandle)
	r.order = nil
}

// activeHandles returns the currently active client handles in registration
// order, the set the transmitter and receiver threads iterate each tick.
func (r *Registry) activeHandles() []ClientHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientHandle, 0, len(r.order))
	for _, id := range r.order {
		h := r.clients[id]
		if h != nil && h.Active() {
			out = append(out, h)
		}
	}
	return out
}
