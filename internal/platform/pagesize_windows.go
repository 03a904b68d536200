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

import "unsafe"

// systemInfo mirrors the fields of SYSTEM_INFO this package reads; see
// https://learn.microsoft.com/windows/win32/api/sysinfoapi/ns-sysinfoapi-system_info.
type systemInfo struct {
	OemID                     uint32
	PageSize                  uint32
	MinimumApplicationAddress uintptr
	MaximumApplicationAddress uintptr
	ActiveProcessorMask       *uint32
	NumberOfProcessors        uint32
	ProcessorType             uint32
	AllocationGranularity     uint32
	ProcessorLevel            uint16
	ProcessorRevision         uint16
}

var procGetSystemInfo = modkernelbase.NewProc("GetSystemInfo")

// PageSize returns the platform's page size.
func PageSize() uint64 {
	return uint64(systemInfoOnce().PageSize)
}

// Granularity returns the Windows allocation granularity (typically 64 KiB),
// stricter than the page size per §4.1 step 3.
func Granularity() uint64 {
	return uint64(systemInfoOnce().AllocationGranularity)
}

func systemInfoOnce() systemInfo {
	var si systemInfo
	procGetSystemInfo.Call(uintptr(unsafe.Pointer(&si)))
	return si
}
