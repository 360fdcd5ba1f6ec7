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
	"context"
	"errors"

	"github.com/pradovic/arweave-ans-104-indexer/stream"
	"github.com/pradovic/arweave-ans-104-indexer/tags"
)

// Severity says how far a failure reaches
type Severity int

const (
	// SeverityLocal failures are confined to one item whose boundaries are
	// already known from the offset table. The item is skipped.
	SeverityLocal Severity = iota
	// SeverityFatal failures prevent locating further items and abort the
	// whole traversal.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityLocal:
		return "local"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var fatalErrors = []error{
	ErrTruncatedHeader,
	ErrUnreasonableItemCount,
	ErrEntrySizeOverflow,
	ErrSizeMismatch,
	ErrTruncatedBundle,
	context.Canceled,
	context.DeadlineExceeded,
}

var localErrors = []error{
	ErrUnknownSignatureType,
	ErrInvalidPresenceByte,
	ErrHeaderExceedsDeclaredSize,
	ErrTooManyTags,
	ErrTagsTooLarge,
	ErrInvalidTag,
	ErrMaxDepthExceeded,
	ErrItemTruncated,
	ErrSinkOpen,
	ErrSinkCommit,
	tags.ErrTagCountMismatch,
	tags.ErrTruncatedTag,
	tags.ErrMalformedTags,
	stream.ErrUnderrunPayload,
	stream.ErrSourceRead,
	stream.ErrSinkWrite,
}

// Classify maps an error to its severity. Fatal markers win over local ones
// so that a cancellation surfacing through an item error still aborts.
// Errors the classifier doesn't recognize are treated as fatal.
func Classify(err error) Severity {
	if err == nil {
		return SeverityLocal
	}
	var fatalErr *FatalError
	if errors.As(err, &fatalErr) {
		return SeverityFatal
	}
	for _, target := range fatalErrors {
		if errors.Is(err, target) {
			return SeverityFatal
		}
	}
	var decodeErr *DecodeError
	var ioErr *IoError
	if errors.As(err, &decodeErr) || errors.As(err, &ioErr) {
		return SeverityLocal
	}
	for _, target := range localErrors {
		if errors.Is(err, target) {
			return SeverityLocal
		}
	}
	return SeverityFatal
}

// IsFatal is shorthand for Classify(err) == SeverityFatal
func IsFatal(err error) bool {
	return err != nil && Classify(err) == SeverityFatal
}
