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

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shmring/magicring/layout"
)

// WindowsBackend implements Backend via the placeholder-splitting technique
// described in §4.2.3: reserve one contiguous address range of header plus
// twice the buffer region, carve it into three placeholder VAs (header,
// primary, mirror), then replace each placeholder with a view of the same
// page-file-backed section. Unlike the POSIX path, no MAP_FIXED-style re-mmap
// of an existing mapping is involved; the address range is reserved empty up
// front and the three placeholders are independently replaced, which is the
// only way Windows allows two views of one section to land at caller-chosen,
// adjacent addresses.
type WindowsBackend struct{}

var _ Backend = WindowsBackend{}

// VirtualAlloc2 and MapViewOfFile3 are not wrapped by golang.org/x/sys/windows
// in the version this module pins; they're reached the way moby/moby's
// mmf_windows.go reaches CreateFileMapping before the wrapped API existed -
// through the system DLL directly.
var (
	modkernelbase        = windows.NewLazySystemDLL("kernelbase.dll")
	procVirtualAlloc2    = modkernelbase.NewProc("VirtualAlloc2")
	procMapViewOfFile3   = modkernelbase.NewProc("MapViewOfFile3")
	procUnmapViewOfFile3 = modkernelbase.NewProc("UnmapViewOfFileEx")
	procVirtualFree      = modkernelbase.NewProc("VirtualFree")
)

const (
	memReserve           = 0x00002000
	memReplacePlaceholder = 0x00004000
	memReservePlaceholder = 0x00040000
	memPreservePlaceholder = 0x00000002
	memRelease           = 0x00008000
	memCoalescePlaceholders = 0x00000001
)

// Create implements Backend.
func (WindowsBackend) Create(name string, desc layout.Descriptor) (*Mapping, error) {
	return createOrOpen(name, desc, true, true)
}

// Open implements Backend.
func (WindowsBackend) Open(name string, desc layout.Descriptor, writable bool) (*Mapping, error) {
	return createOrOpen(name, desc, false, writable)
}

// Exists implements Backend.
func (WindowsBackend) Exists(name string) bool {
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

func createOrOpen(name string, desc layout.Descriptor, create, writable bool) (*Mapping, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, NewError(ErrKindPlatformUnexpected, "utf16", name, err)
	}

	var section windows.Handle
	if create {
		sizeHigh := uint32(desc.TotalSize >> 32)
		sizeLow := uint32(desc.TotalSize & 0xFFFFFFFF)
		// CreateFileMapping sets lastErr to ERROR_ALREADY_EXISTS even on a
		// successful call that attached to a pre-existing section; only a
		// zero handle is a genuine failure.
		section, err = windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, sizeHigh, sizeLow, namePtr)
		if section == 0 {
			return nil, NewError(kindFromWindowsErr(err), "CreateFileMapping", name, err)
		}
		if err == windows.ERROR_ALREADY_EXISTS {
			windows.CloseHandle(section)
			return nil, NewError(ErrKindAlreadyExists, "CreateFileMapping", name, err)
		}
	} else {
		access := uint32(windows.FILE_MAP_READ)
		if writable {
			access |= windows.FILE_MAP_WRITE
		}
		section, err = windows.OpenFileMapping(access, false, namePtr)
		if err != nil {
			return nil, NewError(kindFromWindowsErr(err), "OpenFileMapping", name, err)
		}
	}

	total := uintptr(desc.TotalSize)
	base, _, callErr := procVirtualAlloc2.Call(
		0, 0, total,
		uintptr(memReserve|memReservePlaceholder), windows.PAGE_NOACCESS,
		0, 0,
	)
	if base == 0 {
		windows.CloseHandle(section)
		return nil, NewError(ErrKindPlatformUnexpected, "VirtualAlloc2", name, callErr)
	}

	primaryAddr := base + uintptr(desc.AlignedHeaderSize)
	mirrorAddr := base + uintptr(desc.MirrorOffset)

	// First split separates the primary-side placeholder [base, base+H+B)
	// from the mirror placeholder [base+H+B, base+Total).
	splitSize := uintptr(desc.MirrorOffset)
	split, _, callErr := procVirtualFree.Call(base, splitSize, uintptr(memRelease|memPreservePlaceholder))
	if split == 0 {
		windows.VirtualFree(base, 0, memRelease)
		windows.CloseHandle(section)
		return nil, NewError(ErrKindPlatformUnexpected, "VirtualFree(split)", name, callErr)
	}

	// Second split separates the header placeholder [base, base+H) from the
	// buffer placeholder [base+H, base+H+B) carved out of the first split.
	headerSplitSize := uintptr(desc.AlignedHeaderSize)
	split2, _, callErr := procVirtualFree.Call(base, headerSplitSize, uintptr(memRelease|memPreservePlaceholder))
	if split2 == 0 {
		windows.VirtualFree(base, 0, memRelease)
		windows.CloseHandle(section)
		return nil, NewError(ErrKindPlatformUnexpected, "VirtualFree(split)", name, callErr)
	}

	if _, err := mapViewAt(section, base, 0, uintptr(desc.AlignedHeaderSize)); err != nil {
		cleanupReservation(section, base, mirrorAddr, desc)
		return nil, err
	}
	if _, err := mapViewAt(section, primaryAddr, uintptr(desc.AlignedHeaderSize), uintptr(desc.AlignedBufferSize)); err != nil {
		cleanupReservation(section, base, mirrorAddr, desc)
		return nil, err
	}
	if _, err := mapViewAt(section, mirrorAddr, uintptr(desc.BufferOffset), uintptr(desc.AlignedBufferSize)); err != nil {
		cleanupReservation(section, base, mirrorAddr, desc)
		return nil, err
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(base)), desc.TotalSize)
	closer := func() error {
		procUnmapViewOfFile3.Call(^uintptr(0), base, 0)
		procUnmapViewOfFile3.Call(^uintptr(0), primaryAddr, 0)
		procUnmapViewOfFile3.Call(^uintptr(0), mirrorAddr, 0)
		windows.VirtualFree(base, 0, memRelease)
		return windows.CloseHandle(section)
	}
	return buildMapping(name, desc, raw, writable, closer), nil
}

// mapViewAt replaces a reserved placeholder at addr with a view of section
// starting at fileOffset, per MapViewOfFile3's REPLACE_PLACEHOLDER mode.
func mapViewAt(section windows.Handle, addr, fileOffset, size uintptr) (uintptr, error) {
	got, _, callErr := procMapViewOfFile3.Call(
		uintptr(section), 0, addr, fileOffset, size,
		uintptr(memReplacePlaceholder), uintptr(windows.PAGE_READWRITE),
		0, 0,
	)
	if got == 0 {
		return 0, NewError(ErrKindPlatformUnexpected, "MapViewOfFile3", "", callErr)
	}
	if got != addr {
		return 0, NewError(ErrKindMapsNotAdjacent, "MapViewOfFile3", "", fmt.Errorf("view landed at %#x, want %#x", got, addr))
	}
	return got, nil
}

func cleanupReservation(section windows.Handle, base, mirrorAddr uintptr, desc layout.Descriptor) {
	windows.VirtualFree(base, 0, memRelease)
	windows.CloseHandle(section)
}

func kindFromWindowsErr(err error) ErrorKind {
	switch err {
	case windows.ERROR_ALREADY_EXISTS:
		return ErrKindAlreadyExists
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return ErrKindDoesNotExist
	case windows.ERROR_ACCESS_DENIED:
		return ErrKindAccessDenied
	default:
		return ErrKindPlatformUnexpected
	}
}
