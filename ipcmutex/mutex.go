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

// Package ipcmutex implements the interprocess mutex that protects every
// control segment described in spec.md §4.3: a lock shared across unrelated
// processes mapped onto the same shared-memory region. Plain sync.Mutex
// cannot cross process boundaries and offers no crash recovery, so this
// builds on golang.org/x/sys/unix.Flock against the region's own backing
// file descriptor (the same package facebook/time's fbclock/shmem.go uses
// for its shared-memory mapping) plus a pid/generation stamp written into
// the locked region so a holder's crash can be detected and the lock
// recovered by the next acquirer, rather than deadlocking the segment
// forever.
package ipcmutex

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// StampSize is the number of bytes a Mutex reserves for its holder stamp.
const StampSize = 12

// Mutex is a robust, crash-tolerant interprocess mutex. Multiple Mutex
// values, each wrapping its own fd onto the same backing file and sharing
// a stamp location within the mapped region, serialize access to that
// region.
type Mutex struct {
	fd    int
	stamp []byte
	gen   uint32
}

// New wraps fd and stamp (a StampSize-byte slice inside the mapped region,
// used to record the current holder) into a Mutex. fd must come from a
// distinct open() of the backing file per holder (as happens naturally
// across processes, and across goroutines that each Attach their own
// *shm.Region) since flock semantics key off the open file description,
// not the process: two fds from the same open() never contend with each
// other.
func New(fd int, stamp []byte) (*Mutex, error) {
	if len(stamp) < StampSize {
		return nil, fmt.Errorf("ipcmutex: stamp must be at least %d bytes", StampSize)
	}
	return &Mutex{fd: fd, stamp: stamp[:StampSize]}, nil
}

func (m *Mutex) writeStamp() {
	m.gen++
	binary.BigEndian.PutUint32(m.stamp[0:4], uint32(unix.Getpid()))
	binary.BigEndian.PutUint32(m.stamp[4:8], m.gen)
	binary.BigEndian.PutUint32(m.stamp[8:12], 1) // held=1
}

func (m *Mutex) clearStamp() {
	binary.BigEndian.PutUint32(m.stamp[8:12], 0) // held=0
}

// holderPid returns the pid recorded in the stamp and whether it claims to
// hold the lock.
func (m *Mutex) holderPid() (pid int32, held bool) {
	pid = int32(binary.BigEndian.Uint32(m.stamp[0:4]))
	held = binary.BigEndian.Uint32(m.stamp[8:12]) != 0
	return
}

// Lock blocks until the mutex is acquired. If flock itself returns
// (i.e. the previous holder closed its fd, including on crash or
// process exit) Lock also cross-checks the stamp: if it still claims to
// be held by a pid that is no longer alive, the stale stamp is cleared
// before the stamp is rewritten for this holder.
func (m *Mutex) Lock() error {
	if err := unix.Flock(m.fd, unix.LOCK_EX); err != nil {
		return fmt.Errorf("ipcmutex: lock: %w", err)
	}
	m.recoverIfStale()
	m.writeStamp()
	return nil
}

// TryLock attempts to acquire the mutex without blocking. Returns false if
// already held by a live process.
func (m *Mutex) TryLock() (bool, error) {
	err := unix.Flock(m.fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("ipcmutex: trylock: %w", err)
	}
	m.recoverIfStale()
	m.writeStamp()
	return true, nil
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() error {
	m.clearStamp()
	if err := unix.Flock(m.fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("ipcmutex: unlock: %w", err)
	}
	return nil
}

// recoverIfStale clears a stamp left "held" by a process that is no
// longer alive. flock itself already released the file lock when that
// process exited (the kernel drops flocks on fd close), so reaching this
// point with held==true means the previous holder crashed between
// acquiring the lock and calling Unlock. It reports whether it cleared a
// stamp; Lock and TryLock discard that result, and no queue or free-list
// state is re-validated.
func (m *Mutex) recoverIfStale() (recovered bool) {
	pid, held := m.holderPid()
	if !held {
		return false
	}
	if pid != int32(unix.Getpid()) && isAlive(pid) {
		// Another live process holds the stamp but we still got the flock:
		// this can only happen if that process is mid-writeStamp. Treat
		// conservatively as not stale.
		return false
	}
	m.clearStamp()
	return true
}

func isAlive(pid int32) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM // exists, just not ours to signal
}
