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

// Package platform implements the three shared-memory back-ends (memfd,
// POSIX named shm, Windows placeholder splitting) that back a magic ring
// buffer's doubled virtual-memory mapping.
package platform

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

//go:generate go tool stringer -type=ErrorKind

// ErrorKind classifies the fatal-to-the-operation errors a back-end can raise.
type ErrorKind int

const (
	// ErrKindUnknown is the zero value and should never be observed.
	ErrKindUnknown ErrorKind = iota
	// ErrKindAlreadyExists is raised by Create when the backing object is present.
	ErrKindAlreadyExists
	// ErrKindDoesNotExist is raised by Open when the backing object is absent.
	ErrKindDoesNotExist
	// ErrKindAccessDenied is raised on platform permission refusal.
	ErrKindAccessDenied
	// ErrKindNameTooLong is raised when a name exceeds the platform's limit.
	ErrKindNameTooLong
	// ErrKindFdQuotaExceeded is raised when the process or system fd/handle quota is exhausted.
	ErrKindFdQuotaExceeded
	// ErrKindMapsNotAdjacent is raised when the mirror view does not land at the
	// expected address; the handle is unusable and must be closed.
	ErrKindMapsNotAdjacent
	// ErrKindAllocationGranularity is raised on Windows when a requested size is
	// not a multiple of the system allocation granularity.
	ErrKindAllocationGranularity
	// ErrKindIndexOutOfRange is raised by ring operations on an invalid index.
	ErrKindIndexOutOfRange
	// ErrKindWindowCrossesTail is raised by slice when start is behind the tail.
	ErrKindWindowCrossesTail
	// ErrKindPlatformUnexpected wraps any syscall error not otherwise mapped.
	ErrKindPlatformUnexpected
)

// Error is the concrete error type surfaced by this package and by ring/multiring.
// It carries the classified Kind, the operation that failed, the backing object's
// name (when applicable) and the underlying platform cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a classified Error, wrapping cause with github.com/pkg/errors
// so that callers retain a stack trace at the point of failure.
func NewError(kind ErrorKind, op, name string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: pkgerrors.WithStack(cause)}
}

// KindOf returns the ErrorKind of err if it is (or wraps) an *Error, else
// ErrKindUnknown.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindUnknown
}
