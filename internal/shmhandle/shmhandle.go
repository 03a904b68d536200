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

// Package shmhandle is the general shared-memory handle wrapper described in
// §6 of the specification: a minimal 4-operation collaborator
// (Create/Open/Exists/Close) used as a subroutine by internal/platform's
// POSIX back-end to obtain a single, undoubled mapping of
// total_bytes. internal/platform then re-maps that same backing object a
// second time to build the mirror view; shmhandle itself knows nothing about
// mirroring.
//
// The memfd back-end does not use this package either; it calls
// memfd_create and mmap directly. The Windows back-end does not use it:
// placeholder splitting has no single-mapping intermediate step, so it drives
// CreateFileMapping / VirtualAlloc2 / MapViewOfFile3 directly.
package shmhandle

// Handle is the {fd, data, size} triple described in §6.
type Handle struct {
	Fd   uintptr
	Data []byte
	Size int

	// keepAlive holds whatever platform-specific object (e.g. *os.File on
	// POSIX) must stay reachable so its finalizer does not close Fd out from
	// under a still-live mapping.
	keepAlive any
}
