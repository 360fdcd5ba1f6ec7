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

// Package sink receives the payloads of leaf data items. A sink hands out one
// Writer per item; the walker streams the payload into it and then either
// commits it, making the output visible, or aborts it, discarding whatever was
// written.
package sink

import (
	"context"
	"errors"
	"io"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
)

// ErrWriterClosed is returned when a writer is used after Commit or Abort
var ErrWriterClosed = errors.New("writer already committed or aborted")

// Item identifies the data item whose payload is being written
type Item struct {
	ID bundle.ID
	// BundledIn is the id of the bundle directly containing the item
	BundledIn string
	// Depth is 0 for items of the top-level bundle
	Depth  int
	Header *bundle.ItemHeader
}

// Output describes a committed payload
type Output struct {
	// Location is where the payload ended up: a file path, an object URL,
	// or empty for sinks that keep nothing
	Location string
	// Size is the payload size before any compression
	Size int64
	// Digest is the hex BLAKE3-256 digest of the payload
	Digest string
}

// Sink opens writers for item payloads. Implementations must be safe for
// concurrent use when the walker runs with more than one worker.
type Sink interface {
	Open(ctx context.Context, item Item) (Writer, error)
}

// Writer receives a single payload
type Writer interface {
	io.Writer
	// Commit finishes the payload and makes it visible
	Commit() (Output, error)
	// Abort discards the payload. It is safe to call after a failed Commit.
	Abort() error
}
