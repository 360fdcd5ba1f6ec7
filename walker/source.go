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

package walker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pradovic/arweave-ans-104-indexer/stream"
)

// headerBufferSize is the read buffer used for headers on positioned sources
const headerBufferSize = 16 * 1024

// errSourceEnded means the input ended before an offset the walker needed
var errSourceEnded = errors.New("source ended")

// byteSource hands out readers over absolute ranges of the input
type byteSource interface {
	// section returns a reader over length bytes starting at off. A negative
	// length means the range extends to the end of the input.
	section(ctx context.Context, off, length int64) (io.Reader, error)
	// payload returns a reader over an item payload. item is the reader that
	// was used to decode the item's header.
	payload(item io.Reader, off, length int64) io.Reader
	// concurrent reports whether payload readers are independent of each
	// other and of the walk
	concurrent() bool
}

// sizer is implemented by sources that know their total length
type sizer interface {
	Size() int64
}

// positionedSource is a source supporting concurrent positioned reads
type positionedSource interface {
	io.ReaderAt
	sizer
}

// sequentialSource reads the input once, front to back. Ranges must be
// requested in increasing order; bytes between them are discarded.
type sequentialSource struct {
	r   *bufio.Reader
	pos int64
	buf []byte
}

func newSequentialSource(r io.Reader, chunkSize int) *sequentialSource {
	return &sequentialSource{
		r:   bufio.NewReaderSize(r, min(chunkSize, stream.DefaultChunkSize)),
		buf: make([]byte, min(chunkSize, headerBufferSize)),
	}
}

func (s *sequentialSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *sequentialSource) section(ctx context.Context, off, length int64) (io.Reader, error) {
	if off < s.pos {
		return nil, fmt.Errorf("cursor at %d is already past offset %d", s.pos, off)
	}
	if gap := off - s.pos; gap > 0 {
		if _, err := stream.Discard(ctx, s, gap, s.buf); err != nil {
			if errors.Is(err, stream.ErrUnderrunPayload) {
				return nil, fmt.Errorf("%w at offset %d, needed %d", errSourceEnded, s.pos, off)
			}
			return nil, err
		}
	}
	if length > 0 {
		// An item or nested bundle starting exactly at the end of the input
		// is as unreachable as one starting past it
		if _, err := s.r.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w at offset %d", errSourceEnded, off)
			}
			return nil, fmt.Errorf("%w: %w", stream.ErrSourceRead, err)
		}
	}
	end := int64(-1)
	if length >= 0 {
		end = off + length
	}
	return &boundedReader{src: s, end: end}, nil
}

func (s *sequentialSource) payload(item io.Reader, _, _ int64) io.Reader {
	return item
}

func (s *sequentialSource) concurrent() bool {
	return false
}

// boundedReader stops reading the sequential source at end
type boundedReader struct {
	src *sequentialSource
	end int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.end >= 0 {
		remaining := b.end - b.src.pos
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	return b.src.Read(p)
}

// readerAtSource reads ranges independently through io.SectionReader
type readerAtSource struct {
	ra   io.ReaderAt
	size int64
}

func (s *readerAtSource) section(_ context.Context, off, length int64) (io.Reader, error) {
	if length < 0 {
		length = s.size - off
	}
	if off+length > s.size {
		return nil, fmt.Errorf("%w: range %d+%d beyond size %d", errSourceEnded, off, length, s.size)
	}
	return bufio.NewReaderSize(io.NewSectionReader(s.ra, off, length), headerBufferSize), nil
}

func (s *readerAtSource) payload(_ io.Reader, off, length int64) io.Reader {
	return io.NewSectionReader(s.ra, off, length)
}

func (s *readerAtSource) concurrent() bool {
	return true
}
