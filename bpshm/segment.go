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

// Package bpshm constructs the per-client BP control segment of spec.md
// §4.4 on top of package shm: an interprocess-mutex-guarded set of
// SharedMemBuffer queues (free list, tx request/confirm, rx indication,
// payload queue) plus a fixed buffer pool holding the payload bytes those
// descriptors point into. The queues themselves are shmqueue.Queue values;
// this package owns their sizing, the buffer pool, and the
// integrity-checked static client info header (spec.md §4.4, §4.3.2).
package bpshm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash"

	"github.com/dcp-vardis/dcpd/bp"
	"github.com/dcp-vardis/dcpd/ipcmutex"
	"github.com/dcp-vardis/dcpd/ringbuf"
	"github.com/dcp-vardis/dcpd/shm"
	"github.com/dcp-vardis/dcpd/shmqueue"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// StaticClientInfo is the immutable-after-registration metadata a BP
// daemon stamps into a newly created control segment.
type StaticClientInfo struct {
	ProtocolId         wiretypes.BPProtocolId
	ProtocolName       string
	MaxPayloadSize     uint16
	QueueingMode       bp.QueueingMode
	MaxEntries         uint16
	GenerateTxConfirms bool
}

// digest returns an xxhash checksum of info, used as the segment's
// integrity stamp per spec.md §4.3.2 (a corrupted or mismatched control
// segment is an Unrecoverable condition, not a recoverable one like a lock
// holder crash).
func (info StaticClientInfo) digest() uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%d|%s|%d|%d|%d|%t",
		info.ProtocolId, info.ProtocolName, info.MaxPayloadSize,
		info.QueueingMode, info.MaxEntries, info.GenerateTxConfirms)
	return h.Sum64()
}

// Segment is an attached BP client control segment: the mutex, its four
// descriptor queues, the backing buffer pool and the static info header.
type Segment struct {
	region *shm.Region
	mu     *ipcmutex.Mutex

	FreeList          *shmqueue.Queue
	TxRequestQueue    *shmqueue.Queue
	TxConfirmQueue    *shmqueue.Queue
	RxIndicationQueue *shmqueue.Queue
	PayloadQueue      *shmqueue.Queue

	SingleBuffer shmqueue.SharedMemBuffer

	Info     StaticClientInfo
	checksum uint64

	chunkSize int
	shmName   string
	pool      []byte // region.Data sliced into ChunkCount fixed-size chunks

	active atomic.Bool
}

// QueueCapacity is the fixed capacity Q of the tx/rx/confirm queues,
// independent of the client's chosen payload-queue depth.
const QueueCapacity = 64

// ChunkCount is B, the number of fixed-size payload chunks backing the
// free list (capacity B-1, per spec.md §4.4) plus in-flight queue entries.
const ChunkCount = 128

func regionSize(chunkSize int) int {
	return ChunkCount * chunkSize
}

// Create builds a brand-new control segment named shmName sized to hold
// chunks of at least maxPayloadSize bytes (plus BP/protocol header room),
// and constructs its queues and buffer pool in place.
func Create(dir, shmName string, info StaticClientInfo, chunkSize int) (*Segment, error) {
	region, err := shm.Create(dir, shmName, regionSize(chunkSize))
	if err != nil {
		return nil, err
	}

	stamp := make([]byte, ipcmutex.StampSize)
	mu, err := ipcmutex.New(int(region.Fd()), stamp)
	if err != nil {
		region.Close()
		return nil, err
	}

	s := &Segment{
		region:    region,
		mu:        mu,
		Info:      info,
		checksum:  info.digest(),
		chunkSize: chunkSize,
		shmName:   shmName,
		pool:      region.Data,
	}
	s.FreeList = shmqueue.New(mu, ChunkCount-1)
	s.TxRequestQueue = shmqueue.New(mu, QueueCapacity)
	s.TxConfirmQueue = shmqueue.New(mu, QueueCapacity)
	s.RxIndicationQueue = shmqueue.New(mu, QueueCapacity)
	maxEntries := int(info.MaxEntries)
	if maxEntries < 1 {
		maxEntries = 1
	}
	s.PayloadQueue = shmqueue.New(mu, maxEntries)

	for i := 1; i < ChunkCount; i++ {
		if err := s.FreeList.PushNoWait(shmqueue.SharedMemBuffer{
			MaxLen:   uint32(chunkSize),
			BufIndex: uint32(i),
		}); err != nil {
			region.Close()
			return nil, fmt.Errorf("bpshm: populating free list: %w", err)
		}
	}

	return s, nil
}

// Attach maps an existing control segment without re-populating its
// queues (they already hold whatever state the creator left them in).
func Attach(dir, shmName string, info StaticClientInfo, chunkSize int) (*Segment, error) {
	region, err := shm.Attach(dir, shmName, regionSize(chunkSize))
	if err != nil {
		return nil, err
	}

	stamp := make([]byte, ipcmutex.StampSize)
	mu, err := ipcmutex.New(int(region.Fd()), stamp)
	if err != nil {
		region.Close()
		return nil, err
	}

	expect := info.digest()
	s := &Segment{
		region:    region,
		mu:        mu,
		Info:      info,
		checksum:  expect,
		chunkSize: chunkSize,
		shmName:   shmName,
		pool:      region.Data,
	}
	s.FreeList = shmqueue.New(mu, ChunkCount-1)
	s.TxRequestQueue = shmqueue.New(mu, QueueCapacity)
	s.TxConfirmQueue = shmqueue.New(mu, QueueCapacity)
	s.RxIndicationQueue = shmqueue.New(mu, QueueCapacity)
	maxEntries := int(info.MaxEntries)
	if maxEntries < 1 {
		maxEntries = 1
	}
	s.PayloadQueue = shmqueue.New(mu, maxEntries)
	return s, nil
}

// CheckIntegrity verifies this process's view of the static info against
// the digest recorded when this Segment value was built by Create or
// Attach. The digest is held in process memory, not in the shared region,
// and Attach computes it from the attacher's own StaticClientInfo, so a
// creator/attacher disagreement about the segment's shape is not detected
// here; a mismatch arises only if Info is changed after construction.
func (s *Segment) CheckIntegrity() error {
	if s.Info.digest() != s.checksum {
		return fmt.Errorf("bpshm: control segment integrity check failed for %q", s.Info.ProtocolName)
	}
	return nil
}

// ChunkBytes returns the writable byte slice for the chunk identified by
// buf.BufIndex, sized to buf.MaxLen.
func (s *Segment) ChunkBytes(buf shmqueue.SharedMemBuffer) []byte {
	start := int(buf.BufIndex) * s.chunkSize
	return s.pool[start : start+int(buf.MaxLen)]
}

// Close detaches (or, for the creator, destroys) the underlying region.
func (s *Segment) Close() error {
	return s.region.Close()
}

// The methods below satisfy bp.ClientHandle, letting the daemon's
// transmitter, receiver and registration logic move payloads through a
// Segment without importing bpshm (which already imports bp for
// QueueingMode and Status, so the dependency cannot run the other way).

func (s *Segment) ProtocolId() wiretypes.BPProtocolId { return s.Info.ProtocolId }
func (s *Segment) ProtocolName() string               { return s.Info.ProtocolName }
func (s *Segment) MaxPayloadSize() uint16              { return s.Info.MaxPayloadSize }
func (s *Segment) QueueingMode() bp.QueueingMode       { return s.Info.QueueingMode }
func (s *Segment) GenerateTxConfirms() bool            { return s.Info.GenerateTxConfirms }
func (s *Segment) Active() bool                        { return s.active.Load() }
func (s *Segment) SetActive(v bool)                    { s.active.Store(v) }
func (s *Segment) ShmName() string                      { return s.shmName }
func (s *Segment) ChunkSize() int                       { return s.chunkSize }

// PopTxRequest dequeues the next outgoing payload, copies its bytes out of
// the shared chunk pool, and returns the chunk to the free list.
func (s *Segment) PopTxRequest(ctx context.Context) ([]byte, bool, error) {
	buf, _, err := s.TxRequestQueue.PopNoWait()
	if err != nil {
		if errors.Is(err, ringbuf.ErrEmpty) {
			return nil, false, nil
		}
		return nil, false, err
	}
	chunk := s.ChunkBytes(shmqueue.SharedMemBuffer{MaxLen: uint32(s.chunkSize), BufIndex: buf.BufIndex})
	data := append([]byte(nil), chunk[buf.DataOffset:buf.DataOffset+buf.UsedLen]...)
	if err := s.FreeList.PushWait(ctx, shmqueue.SharedMemBuffer{
		MaxLen:   uint32(s.chunkSize),
		BufIndex: buf.BufIndex,
	}); err != nil {
		return data, true, err
	}
	return data, true, nil
}

// PushRxIndication copies payload into a free chunk and enqueues it for the
// client to read.
func (s *Segment) PushRxIndication(ctx context.Context, payload []byte) error {
	buf, _, err := s.FreeList.PopWait(ctx)
	if err != nil {
		return err
	}
	buf.MaxLen = uint32(s.chunkSize)
	buf.UsedLen = uint32(len(payload))
	buf.DataOffset = 0
	copy(s.ChunkBytes(buf), payload)
	return s.RxIndicationQueue.PushWait(ctx, buf)
}

// PushTxConfirm enqueues a zero-length confirmation marker, notifying the
// client that one of its submitted payloads was transmitted.
func (s *Segment) PushTxConfirm(ctx context.Context) error {
	return s.TxConfirmQueue.PushWait(ctx, shmqueue.SharedMemBuffer{})
}
