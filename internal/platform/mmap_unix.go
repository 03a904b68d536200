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

package platform

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapFixed performs the raw mmap(2) call with an explicit target address and
// MAP_FIXED, aliasing fd's bytes at [offset, offset+length) onto the virtual
// address range [addr, addr+length). golang.org/x/sys/unix.Mmap does not
// expose the address parameter, so this drops to the raw syscall the same
// way nxgtw-go-ipc's shared_memory_bsd.go reaches shm_open/shm_unlink:
// unix.Syscall against the platform's numbered syscall table.
func mmapFixed(fd int, offset int64, addr uintptr, length int, prot int) (uintptr, error) {
	flags := unix.MAP_SHARED | unix.MAP_FIXED
	got, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length), uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
	if errno != 0 {
		return 0, errno
	}
	return got, nil
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
