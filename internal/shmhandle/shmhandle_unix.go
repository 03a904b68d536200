//go:build linux || darwin || freebsd

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

package shmhandle

import (
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// Create opens (with create-exclusive semantics) a named POSIX shared-memory
// object, sizes it to bytes, and maps it read-write/shared. name must begin
// with "/" per §6; the leading slash is stripped before resolving a path
// under /dev/shm (or os.TempDir() when /dev/shm is unavailable), mirroring
// the teacher's generateSegmentPath.
//
// The returned Handle keeps its backing *os.File open (and reachable via
// keepAlive) for as long as the Handle is alive: internal/platform's POSIX
// back-end performs a second, fixed-address mmap of the same Fd to build the
// mirror view, and that requires the file descriptor to still be valid.
func Create(name string, bytes int) (*Handle, error) {
	path, err := resolvePath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		return nil, mapOSError("create", err)
	}
	if err := file.Truncate(int64(bytes)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, mapOSError("truncate", err)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, bytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, mapOSError("mmap", err)
	}
	return &Handle{Fd: file.Fd(), Data: data, Size: bytes, keepAlive: file}, nil
}

// Open maps an existing named shared-memory object. writable selects
// PROT_READ|PROT_WRITE vs PROT_READ only.
func Open(name string, writable bool) (*Handle, error) {
	path, err := resolvePath(name)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, mapOSError("open", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, mapOSError("stat", err)
	}
	size := int(info.Size())
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(file.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, mapOSError("mmap", err)
	}
	return &Handle{Fd: file.Fd(), Data: data, Size: size, keepAlive: file}, nil
}

// Exists reports whether the named object is currently present.
func Exists(name string) bool {
	path, err := resolvePath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Close unmaps h.Data, closes the kept-alive file descriptor, and removes the
// named backing object. ENOENT at the removal step is tolerated per §7's
// propagation policy.
func Close(h *Handle, name string) error {
	var firstErr error
	if h.Data != nil {
		if err := unix.Munmap(h.Data); err != nil && firstErr == nil {
			firstErr = mapOSError("munmap", err)
		}
		h.Data = nil
	}
	if file, ok := h.keepAlive.(*os.File); ok && file != nil {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = mapOSError("close", err)
		}
	}
	path, err := resolvePath(name)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = mapOSError("remove", err)
	}
	return firstErr
}

func resolvePath(name string) (string, error) {
	trimmed := name
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	if trimmed == "" {
		return "", errInvalidName
	}
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", trimmed), nil
	}
	return filepath.Join(os.TempDir(), trimmed), nil
}

var errInvalidName = &os.PathError{Op: "shmhandle", Path: "", Err: syscall.EINVAL}

func mapOSError(op string, err error) error {
	return &os.PathError{Op: op, Path: "", Err: underlying(err)}
}

func underlying(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
