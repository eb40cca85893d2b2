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

// Package shm implements named POSIX-style shared-memory regions: a
// creator truncates to the required size, relaxes permissions so
// unprivileged peers can attach, and destroys the segment on close;
// attachers map the same name read-write and merely unmap on close. This
// mirrors fbclock/shmem.go's OpenFBClockSHM/StoreFBClockData split between
// owning and attaching handles, but stays in pure Go: rather than cgo
// shm_open/ftruncate, a regular file under a shared directory (/dev/shm on
// Linux) plays the role of the POSIX shared-memory object, and
// golang.org/x/sys/unix.Mmap (the same package fbclock/shmem.go uses for
// its own Mmap helper) maps it.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrExists is returned by Create when a segment of that name already exists.
var ErrExists = errors.New("shm: segment already exists")

// ErrNotFound is returned by Attach when no segment of that name exists.
var ErrNotFound = errors.New("shm: segment not found")

// DefaultDir is where named segments live, mirroring the POSIX shm
// convention of tmpfs-backed /dev/shm.
const DefaultDir = "/dev/shm"

// Region is a mapped shared-memory segment.
type Region struct {
	Name    string
	Dir     string
	Data    []byte
	file    *os.File
	creator bool
}

func path(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, name)
}

// Create creates a new named segment of the given size, world-readable and
// writable so unprivileged client processes can attach. Fails with
// ErrExists if a segment of that name is already present.
func Create(dir, name string, size int) (*Region, error) {
	p := path(dir, name)

	oldUmask := unix.Umask(0)
	defer unix.Umask(oldUmask)

	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, p)
		}
		return nil, fmt.Errorf("shm: create %s: %w", p, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(p)
		return nil, fmt.Errorf("shm: truncate %s: %w", p, err)
	}
	// Belt-and-braces: O_CREATE with 0666 is still subject to umask, which
	// we already zeroed, but Chmod makes the intent explicit regardless of
	// umask races from other goroutines in the same process.
	if err := f.Chmod(0666); err != nil {
		f.Close()
		os.Remove(p)
		return nil, fmt.Errorf("shm: chmod %s: %w", p, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(p)
		return nil, fmt.Errorf("shm: mmap %s: %w", p, err)
	}

	return &Region{Name: name, Dir: dir, Data: data, file: f, creator: true}, nil
}

// Attach maps an existing segment read-write. Fails with ErrNotFound if
// absent.
func Attach(dir, name string, size int) (*Region, error) {
	p := path(dir, name)

	f, err := os.OpenFile(p, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("shm: attach %s: %w", p, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", p, err)
	}

	return &Region{Name: name, Dir: dir, Data: data, file: f, creator: false}, nil
}

// Close unmaps the region. If this Region is the creator, the backing
// segment is also unlinked (destruction is creator-owned per spec.md §9).
// Attachers merely detach.
func (r *Region) Close() error {
	var errs []error
	if r.Data != nil {
		if err := unix.Munmap(r.Data); err != nil {
			errs = append(errs, err)
		}
		r.Data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.creator {
		if err := os.Remove(path(r.Dir, r.Name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fd returns the underlying file descriptor, e.g. for use with flock-based
// interprocess mutexes (see package ipcmutex).
func (r *Region) Fd() uintptr {
	return r.file.Fd()
}
