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

package vardis

import (
	"time"

	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Config bounds the service handler's acceptance checks, per spec.md §6.
type Config struct {
	MaxDescriptionLength int
	MaxValueLength       int
	MaxRepetitions       uint8
}

// Service implements the RTDB.* request handlers of spec.md §4.10 against
// a *rtdb.Store. It holds no shared-memory or socket concerns: those
// belong to the daemon's command-socket plumbing, which calls these
// methods after decoding a request.
type Service struct {
	store     *rtdb.Store
	ownNodeId wiretypes.NodeId
	cfg       Config
}

// NewService binds a Service to store for a daemon identified by ownNodeId.
func NewService(store *rtdb.Store, ownNodeId wiretypes.NodeId, cfg Config) *Service {
	return &Service{store: store, ownNodeId: ownNodeId, cfg: cfg}
}

// Create implements RTDB_Create.request{spec, value}.
func (s *Service) Create(spec wiretypes.VarSpec, value wiretypes.VarValue) Status {
	if spec.Producer != s.ownNodeId {
		return StatusNotProducer
	}
	if spec.RepCnt < 1 || int(spec.RepCnt) > int(s.cfg.MaxRepetitions) {
		return StatusIllegalRepCount
	}
	if len(spec.Description) > s.cfg.MaxDescriptionLength {
		return StatusVariableDescriptionTooLong
	}
	if len(value) == 0 {
		return StatusEmptyValue
	}
	if len(value) > s.cfg.MaxValueLength {
		return StatusValueTooLong
	}

	s.store.Lock()
	defer s.store.Unlock()

	if _, exists := s.store.Lookup(spec.VarId); exists {
		return StatusVariableExists
	}

	s.store.Set(spec.VarId, rtdb.DBEntry{
		Exists:      true,
		Spec:        spec,
		Seqno:       0,
		Timestamp:   time.Now(),
		Value:       value,
		CountCreate: uint8(spec.RepCnt),
	})
	s.store.PushCreateQ(spec.VarId)
	return StatusOK
}

// Delete implements RTDB_Delete.request{varId}.
func (s *Service) Delete(varId wiretypes.VarId) Status {
	s.store.Lock()
	defer s.store.Unlock()

	e, exists := s.store.Lookup(varId)
	if !exists {
		return StatusVariableDoesNotExist
	}
	if e.Spec.Producer != s.ownNodeId {
		return StatusNotProducer
	}
	if e.ToBeDeleted {
		return StatusAlreadyBeingDeleted
	}

	e.ToBeDeleted = true
	e.Value = nil
	e.CountDelete = uint8(e.Spec.RepCnt)
	e.CountCreate = 0
	e.CountUpdate = 0
	e.Timestamp = time.Now()
	s.store.Set(varId, e)
	s.store.PushDeleteQ(varId)
	return StatusOK
}

// Update implements RTDB_Update.request{varId, value}.
func (s *Service) Update(varId wiretypes.VarId, value wiretypes.VarValue) Status {
	if len(value) == 0 {
		return StatusEmptyValue
	}
	if len(value) > s.cfg.MaxValueLength {
		return StatusValueTooLong
	}

	s.store.Lock()
	defer s.store.Unlock()

	e, exists := s.store.Lookup(varId)
	if !exists {
		return StatusVariableDoesNotExist
	}
	if e.Spec.Producer != s.ownNodeId {
		return StatusNotProducer
	}
	if e.ToBeDeleted {
		return StatusAlreadyBeingDeleted
	}

	e.Seqno = e.Seqno.Next()
	e.Value = value
	e.Timestamp = time.Now()
	e.CountUpdate = uint8(e.Spec.RepCnt)
	s.store.Set(varId, e)
	s.store.PushUpdateQ(varId)
	return StatusOK
}

// ReadResult is the payload of a successful RTDB_Read.confirm.
type ReadResult struct {
	Value     wiretypes.VarValue
	Seqno     wiretypes.VarSeqno
	Timestamp time.Time
}

// Read implements RTDB_Read.request{varId, bufCapacity}.
func (s *Service) Read(varId wiretypes.VarId, bufCapacity int) (ReadResult, Status) {
	s.store.Lock()
	defer s.store.Unlock()

	e, exists := s.store.Lookup(varId)
	if !exists {
		return ReadResult{}, StatusVariableDoesNotExist
	}
	if len(e.Value) > bufCapacity {
		return ReadResult{}, StatusValueTooLong
	}
	return ReadResult{Value: e.Value, Seqno: e.Seqno, Timestamp: e.Timestamp}, StatusOK
}
