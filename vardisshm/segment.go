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

// Package vardisshm mirrors package bpshm's control-segment construction
// for Vardis clients, per spec.md §4.8: the same shape, but with four
// request/confirm queue pairs (Create, Delete, Update, Read) instead of
// BP's tx/rx split, since every Vardis client operation is a distinct
// verb rather than an undifferentiated payload stream.
package vardisshm

import (
	"fmt"

	"github.com/cespare/xxhash"

	"github.com/dcp-vardis/dcpd/ipcmutex"
	"github.com/dcp-vardis/dcpd/shm"
	"github.com/dcp-vardis/dcpd/shmqueue"
)

// QueueCapacity is the fixed depth of each request/confirm queue.
const QueueCapacity = 64

// ChunkCount is the number of fixed-size payload chunks backing the
// segment's buffer pool (large enough to hold a VarValue/VarSpec each).
const ChunkCount = 32

// StaticClientInfo identifies the client and records the bufCapacity it
// registered with, which Factory.CreateClient uses as a lower bound on the
// chunk size.
type StaticClientInfo struct {
	ClientName   string
	BufCapacity  uint32
}

func (info StaticClientInfo) digest() uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%d", info.ClientName, info.BufCapacity)
	return h.Sum64()
}

// Segment is an attached Vardis client control segment.
type Segment struct {
	region *shm.Region
	mu     *ipcmutex.Mutex

	FreeList *shmqueue.Queue

	CreateRequest *shmqueue.Queue
	CreateConfirm *shmqueue.Queue
	DeleteRequest *shmqueue.Queue
	DeleteConfirm *shmqueue.Queue
	UpdateRequest *shmqueue.Queue
	UpdateConfirm *shmqueue.Queue
	ReadRequest   *shmqueue.Queue
	ReadConfirm   *shmqueue.Queue

	Info     StaticClientInfo
	checksum uint64

	chunkSize int
	pool      []byte
}

func regionSize(chunkSize int) int {
	return ChunkCount * chunkSize
}

func build(region *shm.Region, info StaticClientInfo, chunkSize int) (*Segment, error) {
	stamp := make([]byte, ipcmutex.StampSize)
	mu, err := ipcmutex.New(int(region.Fd()), stamp)
	if err != nil {
		return nil, err
	}
	s := &Segment{
		region:    region,
		mu:        mu,
		Info:      info,
		checksum:  info.digest(),
		chunkSize: chunkSize,
		pool:      region.Data,
	}
	s.FreeList = shmqueue.New(mu, ChunkCount-1)
	s.CreateRequest = shmqueue.New(mu, QueueCapacity)
	s.CreateConfirm = shmqueue.New(mu, QueueCapacity)
	s.DeleteRequest = shmqueue.New(mu, QueueCapacity)
	s.DeleteConfirm = shmqueue.New(mu, QueueCapacity)
	s.UpdateRequest = shmqueue.New(mu, QueueCapacity)
	s.UpdateConfirm = shmqueue.New(mu, QueueCapacity)
	s.ReadRequest = shmqueue.New(mu, QueueCapacity)
	s.ReadConfirm = shmqueue.New(mu, QueueCapacity)
	return s, nil
}

// Create builds a new Vardis client control segment.
func Create(dir, shmName string, info StaticClientInfo, chunkSize int) (*Segment, error) {
	region, err := shm.Create(dir, shmName, regionSize(chunkSize))
	if err != nil {
		return nil, err
	}
	s, err := build(region, info, chunkSize)
	if err != nil {
		region.Close()
		return nil, err
	}
	for i := 1; i < ChunkCount; i++ {
		if err := s.FreeList.PushNoWait(shmqueue.SharedMemBuffer{
			MaxLen:   uint32(chunkSize),
			BufIndex: uint32(i),
		}); err != nil {
			region.Close()
			return nil, fmt.Errorf("vardisshm: populating free list: %w", err)
		}
	}
	return s, nil
}

// Attach maps an existing Vardis client control segment.
func Attach(dir, shmName string, info StaticClientInfo, chunkSize int) (*Segment, error) {
	region, err := shm.Attach(dir, shmName, regionSize(chunkSize))
	if err != nil {
		return nil, err
	}
	s, err := build(region, info, chunkSize)
	if err != nil {
		region.Close()
		return nil, err
	}
	return s, nil
}

// CheckIntegrity is bpshm.Segment.CheckIntegrity's sibling for Vardis
// segments.
func (s *Segment) CheckIntegrity() error {
	if s.Info.digest() != s.checksum {
		return fmt.Errorf("vardisshm: control segment integrity check failed for %q", s.Info.ClientName)
	}
	return nil
}

// ChunkSize reports the fixed chunk size this segment's pool was built with.
func (s *Segment) ChunkSize() int { return s.chunkSize }

// ChunkBytes returns the writable byte slice for buf's chunk.
func (s *Segment) ChunkBytes(buf shmqueue.SharedMemBuffer) []byte {
	start := int(buf.BufIndex) * s.chunkSize
	return s.pool[start : start+int(buf.MaxLen)]
}

// Close detaches (or, for the creator, destroys) the underlying region.
func (s *Segment) Close() error {
	return s.region.Close()
}
