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

// Package stream copies bounded byte ranges from a source to a destination
// in fixed-size chunks, so payloads of any size can be moved without holding
// them in memory.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the copy buffer size used when none is configured
const DefaultChunkSize = 1024 * 1024

var (
	// ErrUnderrunPayload is returned when the source ends before the
	// requested number of bytes was delivered.
	ErrUnderrunPayload = errors.New("payload underrun")
	// ErrSourceRead is returned when reading the source fails for any reason
	// other than ending early.
	ErrSourceRead = errors.New("source read failed")
	// ErrSinkWrite is returned when the destination rejects a write.
	ErrSinkWrite = errors.New("sink write failed")
)

// Copy copies exactly length bytes from src to dst using a buffer of at most
// chunkSize bytes. A chunkSize <= 0 selects DefaultChunkSize.
func Copy(
	ctx context.Context,
	dst io.Writer,
	src io.Reader,
	length int64,
	chunkSize int,
) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if int64(chunkSize) > length {
		// #nosec G115 -- length is smaller than chunkSize, which is an int
		chunkSize = int(length)
	}
	return CopyBuffer(ctx, dst, src, length, make([]byte, chunkSize))
}

// CopyBuffer is like Copy but uses the provided buffer. Each write to dst
// carries at most len(buf) bytes. The context is checked before every chunk.
func CopyBuffer(
	ctx context.Context,
	dst io.Writer,
	src io.Reader,
	length int64,
	buf []byte,
) (int64, error) {
	if length < 0 {
		return 0, fmt.Errorf("invalid copy length %d", length)
	}
	if length > 0 && len(buf) == 0 {
		return 0, errors.New("empty copy buffer")
	}
	var written int64
	for written < length {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		chunk := buf
		if remaining := length - written; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		readCount, readErr := io.ReadFull(src, chunk)
		if readCount > 0 {
			writeCount, writeErr := dst.Write(chunk[:readCount])
			written += int64(writeCount)
			if writeErr == nil && writeCount != readCount {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				return written, fmt.Errorf("%w: %w", ErrSinkWrite, writeErr)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return written, fmt.Errorf(
					"%w: got %d of %d bytes",
					ErrUnderrunPayload,
					written,
					length,
				)
			}
			return written, fmt.Errorf("%w: %w", ErrSourceRead, readErr)
		}
	}
	return written, nil
}

// Discard reads and drops exactly length bytes from src
func Discard(ctx context.Context, src io.Reader, length int64, buf []byte) (int64, error) {
	return CopyBuffer(ctx, io.Discard, src, length, buf)
}
