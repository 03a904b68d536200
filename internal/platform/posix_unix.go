//go:build darwin || freebsd

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
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/shmring/magicring/layout"
	"github.com/shmring/magicring/internal/shmhandle"
)

// PosixBackend implements Backend over POSIX named shared memory (§4.2.1).
// It is the back-end selected on darwin and freebsd.
type PosixBackend struct{}

var _ Backend = PosixBackend{}

// Create implements Backend.
func (PosixBackend) Create(name string, desc layout.Descriptor) (*Mapping, error) {
	h, err := shmhandle.Create(name, int(desc.TotalSize))
	if err != nil {
		return nil, classifyCreate("create", name, err)
	}
	if err := remapMirror(h, desc); err != nil {
		shmhandle.Close(h, name)
		return nil, err
	}
	return buildMapping(name, desc, h.Data, true, func() error { return shmhandle.Close(h, name) }), nil
}

// Open implements Backend.
func (PosixBackend) Open(name string, desc layout.Descriptor, writable bool) (*Mapping, error) {
	h, err := shmhandle.Open(name, writable)
	if err != nil {
		return nil, classifyOpen("open", name, err)
	}
	if err := remapMirror(h, desc); err != nil {
		unix.Munmap(h.Data)
		return nil, err
	}
	return buildMapping(name, desc, h.Data, writable, func() error { return shmhandle.Close(h, name) }), nil
}

// Exists implements Backend.
func (PosixBackend) Exists(name string) bool {
	return shmhandle.Exists(name)
}

// remapMirror performs step 4-5 of §4.2.1: a fixed mapping of the same
// backing object at file offset BufferOffset, placed at the virtual address
// immediately after the primary view, aliasing it byte for byte.
func remapMirror(h *shmhandle.Handle, desc layout.Descriptor) error {
	base := addrOf(h.Data)
	want := base + uintptr(desc.MirrorOffset)
	prot := unix.PROT_READ | unix.PROT_WRITE
	got, err := mmapFixed(int(h.Fd), int64(desc.BufferOffset), want, int(desc.AlignedBufferSize), prot)
	if err != nil {
		return NewError(ErrKindPlatformUnexpected, "mmap", "", err)
	}
	if got != want {
		return NewError(ErrKindMapsNotAdjacent, "mmap", "", os.NewSyscallError("mmap", syscall.EINVAL))
	}
	return nil
}
