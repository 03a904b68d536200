//go:build linux

/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package platform

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/shmring/magicring/layout"
)

// MemfdBackend implements Backend over Linux memfd_create (§4.2.1). The
// backing object has no filesystem path; it is addressed through an
// in-process table of open descriptors keyed by name. A second process
// attaching to the same name must already share the creating process's PID
// out of band and resolve the descriptor through /proc/<pid>/fd/<n> -
// memfd segments are scoped to cooperating processes on the same host, never
// discovered by name alone the way POSIX shm objects are.
type MemfdBackend struct{}

var _ Backend = MemfdBackend{}

var memfdRegistry = struct {
	mu sync.Mutex
	m  map[string]*memfdEntry
}{m: make(map[string]*memfdEntry)}

type memfdEntry struct {
	fd  int
	pid int
}

// Create implements Backend. It calls memfd_create(2), truncates to
// desc.TotalSize, maps it read-write, and records the descriptor under name
// in this process's registry so an Open in the same process can find it via
// /proc/<pid>/fd.
func (MemfdBackend) Create(name string, desc layout.Descriptor) (*Mapping, error) {
	memfdRegistry.mu.Lock()
	if _, exists := memfdRegistry.m[name]; exists {
		memfdRegistry.mu.Unlock()
		return nil, NewError(ErrKindAlreadyExists, "create", name, fmt.Errorf("memfd %q already registered in this process", name))
	}
	memfdRegistry.mu.Unlock()

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, NewError(kindFromErrno(err), "memfd_create", name, err)
	}
	if err := unix.Ftruncate(fd, int64(desc.TotalSize)); err != nil {
		unix.Close(fd)
		return nil, NewError(kindFromErrno(err), "ftruncate", name, err)
	}

	raw, err := unix.Mmap(fd, 0, int(desc.TotalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, NewError(ErrKindPlatformUnexpected, "mmap", name, err)
	}
	if err := remapMemfdMirror(fd, raw, desc, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		unix.Munmap(raw)
		unix.Close(fd)
		return nil, err
	}

	memfdRegistry.mu.Lock()
	memfdRegistry.m[name] = &memfdEntry{fd: fd, pid: os.Getpid()}
	memfdRegistry.mu.Unlock()

	closer := func() error {
		memfdRegistry.mu.Lock()
		delete(memfdRegistry.m, name)
		memfdRegistry.mu.Unlock()
		if err := unix.Munmap(raw); err != nil {
			unix.Close(fd)
			return NewError(ErrKindPlatformUnexpected, "munmap", name, err)
		}
		return unix.Close(fd)
	}
	return buildMapping(name, desc, raw, true, closer), nil
}

// Open implements Backend. It looks name up in the in-process registry and
// maps the same descriptor a second time through /proc/<pid>/fd/<n>. The
// registry is a per-process map, so Open only finds memfds created by this
// same process; a name created by another process reports
// ErrKindDoesNotExist.
//
// Secondary openers always get a read-only mapping on memfd, regardless of
// the writable argument: this backend has no single-producer enforcement
// mechanism short of the mapping's own protection bits, so the second
// attacher is mapped PROT_READ unconditionally. This is a known, intentional
// asymmetry with PosixBackend and WindowsBackend, where a genuine
// writer-reopens-its-own-segment case exists.
func (MemfdBackend) Open(name string, desc layout.Descriptor, writable bool) (*Mapping, error) {
	memfdRegistry.mu.Lock()
	entry, ok := memfdRegistry.m[name]
	memfdRegistry.mu.Unlock()
	if !ok {
		return nil, NewError(ErrKindDoesNotExist, "open", name, fmt.Errorf("no memfd registered for %q", name))
	}

	path := fmt.Sprintf("/proc/%d/fd/%d", entry.pid, entry.fd)
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, NewError(kindFromErrno(err), "open", name, err)
	}
	defer file.Close()

	prot := unix.PROT_READ
	raw, err := unix.Mmap(int(file.Fd()), 0, int(desc.TotalSize), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, NewError(ErrKindPlatformUnexpected, "mmap", name, err)
	}
	if err := remapMemfdMirror(int(file.Fd()), raw, desc, prot); err != nil {
		unix.Munmap(raw)
		return nil, err
	}

	closer := func() error {
		return unix.Munmap(raw)
	}
	return buildMapping(name, desc, raw, false, closer), nil
}

// Exists implements Backend.
func (MemfdBackend) Exists(name string) bool {
	memfdRegistry.mu.Lock()
	defer memfdRegistry.mu.Unlock()
	_, ok := memfdRegistry.m[name]
	return ok
}

// remapMemfdMirror performs the same MAP_FIXED re-mapping trick as
// remapMirror in posix_unix.go, against a raw fd rather than a
// shmhandle.Handle. prot must match the primary mapping's protection, since a
// mirror with wider access than the primary would make a read-only secondary
// mapping writable through its second half.
func remapMemfdMirror(fd int, raw []byte, desc layout.Descriptor, prot int) error {
	base := addrOf(raw)
	want := base + uintptr(desc.MirrorOffset)
	got, err := mmapFixed(fd, int64(desc.BufferOffset), want, int(desc.AlignedBufferSize), prot)
	if err != nil {
		return NewError(ErrKindPlatformUnexpected, "mmap", "", err)
	}
	if got != want {
		return NewError(ErrKindMapsNotAdjacent, "mmap", "", fmt.Errorf("mirror landed at %#x, want %#x", got, want))
	}
	return nil
}
