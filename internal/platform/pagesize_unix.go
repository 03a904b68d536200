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

import "os"

// PageSize returns the platform's page size, per §4.1 step 1.
func PageSize() uint64 {
	return uint64(os.Getpagesize())
}

// Granularity returns the platform's mapping-address granularity. On POSIX,
// this equals the page size (§4.1: "on POSIX, granularity = page size").
func Granularity() uint64 {
	return PageSize()
}
