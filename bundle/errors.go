// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bundle

import (
	"errors"
	"fmt"
)

// Failures that make it impossible to locate further items
var (
	ErrTruncatedHeader       = errors.New("bundle header truncated")
	ErrUnreasonableItemCount = errors.New("unreasonable item count")
	ErrEntrySizeOverflow     = errors.New("offset table entry size overflow")
	ErrSizeMismatch          = errors.New("bundle size does not match offset table")
	ErrTruncatedBundle       = errors.New("stream ended before the declared bundle length")
)

// Failures confined to a single item's header
var (
	ErrUnknownSignatureType      = errors.New("unknown signature type")
	ErrInvalidPresenceByte       = errors.New("invalid presence byte")
	ErrHeaderExceedsDeclaredSize = errors.New("item header exceeds declared size")
	ErrTooManyTags               = errors.New("too many tags")
	ErrTagsTooLarge              = errors.New("tag block too large")
	ErrInvalidTag                = errors.New("invalid tag")
	ErrMaxDepthExceeded          = errors.New("nested bundle depth limit exceeded")
)

// Failures confined to a single item's bytes on the wire
var (
	ErrItemTruncated = errors.New("stream ended inside item")
	ErrSinkOpen      = errors.New("failed to open payload sink")
	ErrSinkCommit    = errors.New("failed to commit payload")
)

// FatalError aborts the whole bundle traversal
type FatalError struct {
	// Bundle identifies the bundle being read: the transaction id for the
	// top-level bundle or the containing item's id for a nested one
	Bundle string
	// Offset is the absolute stream offset where the failure was detected
	Offset int64
	Err    error
}

func (e *FatalError) Error() string {
	if e.Bundle == "" {
		return fmt.Sprintf("fatal at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("fatal in bundle %s at offset %d: %v", e.Bundle, e.Offset, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// DecodeError is a malformed item header. The item is skipped.
type DecodeError struct {
	// Field is the header field being decoded when the failure happened
	Field string
	// Offset is relative to the start of the item
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at item offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IoError is a failure to read or deliver an item's bytes. The item is
// marked failed and any output already produced for it is discarded.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
