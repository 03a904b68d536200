//go:build windows

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
	"unsafe"

	"golang.org/x/sys/windows"
)

// Create and Open exist on Windows for API symmetry and for callers that only
// need a single, undoubled mapping (e.g. tests); internal/platform's Windows
// back-end does not call into this package, since placeholder splitting has
// no single-mapping intermediate step.

// Create backs name with a new page-file-backed section of the given size and
// maps it read-write.
func Create(name string, bytes int) (*Handle, error) {
	sizeHigh := uint32(uint64(bytes) >> 32)
	sizeLow := uint32(uint64(bytes) & 0xFFFFFFFF)
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, sizeHigh, sizeLow, namePtr)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(bytes))
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), bytes)
	return &Handle{Fd: uintptr(h), Data: data, Size: bytes}, nil
}

// Open attaches to an existing named section.
func Open(name string, writable bool) (*Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	access := uint32(windows.FILE_MAP_READ)
	if writable {
		access |= windows.FILE_MAP_WRITE
	}
	h, err := windows.OpenFileMapping(access, false, namePtr)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, access, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	// MapViewOfFile with a size of 0 maps the section's entire committed
	// size, which we don't know yet; VirtualQuery reports it back as
	// RegionSize so Data can be built over the real mapped extent.
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(h)
		return nil, err
	}
	size := int(mbi.RegionSize)
	return &Handle{Fd: uintptr(h), Data: unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), Size: size}, nil
}

// Exists attempts a read-only open; success means the section exists.
func Exists(name string) bool {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return false
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ, false, namePtr)
	if err != nil {
		return false
	}
	windows.CloseHandle(h)
	return true
}

// Close unmaps h.Data and closes the section handle.
func Close(h *Handle, name string) error {
	if len(h.Data) > 0 {
		if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&h.Data[0]))); err != nil {
			return err
		}
	}
	return windows.CloseHandle(windows.Handle(h.Fd))
}
