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

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// PartialSuffix marks files whose payload hasn't been committed yet
const PartialSuffix = ".partial"

// Compression selects how FileSink stores payloads
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. An empty name means none.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("unknown compression %q", name)
}

// Extension returns the file name suffix for the compression
func (c Compression) Extension() string {
	if c == CompressionZstd {
		return ".zst"
	}
	return ""
}

// FileSink writes each payload to <base>_<item-id>. Payloads are written to a
// file with PartialSuffix and renamed into place on commit, so a file at the
// final path is always complete.
type FileSink struct {
	base        string
	compression Compression
	level       zstd.EncoderLevel
}

type FileOption func(*FileSink)

// WithCompression compresses payloads as they are written
func WithCompression(c Compression) FileOption {
	return func(s *FileSink) {
		s.compression = c
	}
}

// WithZstdLevel sets the zstd encoder level
func WithZstdLevel(level zstd.EncoderLevel) FileOption {
	return func(s *FileSink) {
		s.level = level
	}
}

func NewFileSink(base string, opts ...FileOption) *FileSink {
	s := &FileSink{
		base:        base,
		compression: CompressionNone,
		level:       zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the final path for an item payload
func (s *FileSink) Path(item Item) string {
	return s.base + "_" + item.ID.String() + s.compression.Extension()
}

func (s *FileSink) Open(ctx context.Context, item Item) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(item)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	partial := path + PartialSuffix
	// #nosec G304 -- output path is chosen by the operator
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := &fileWriter{
		file:    f,
		path:    path,
		partial: partial,
	}
	var dst io.Writer = f
	if s.compression == CompressionZstd {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(s.level))
		if err != nil {
			_ = f.Close()
			_ = os.Remove(partial)
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.encoder = enc
		dst = enc
	}
	w.digestWriter = newDigestWriter(dst)
	return w, nil
}

type fileWriter struct {
	*digestWriter
	file    *os.File
	encoder *zstd.Encoder
	path    string
	partial string
	closed  bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.digestWriter.Write(p)
}

func (w *fileWriter) Commit() (Output, error) {
	if w.closed {
		return Output{}, ErrWriterClosed
	}
	if w.encoder != nil {
		if err := w.encoder.Close(); err != nil {
			return Output{}, fmt.Errorf("flush zstd stream: %w", err)
		}
	}
	if err := w.file.Sync(); err != nil {
		return Output{}, err
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return Output{}, err
	}
	if err := os.Rename(w.partial, w.path); err != nil {
		_ = os.Remove(w.partial)
		return Output{}, err
	}
	return w.output(w.path), nil
}

func (w *fileWriter) Abort() error {
	if w.encoder != nil {
		w.encoder.Reset(nil)
	}
	var closeErr error
	if !w.closed {
		closeErr = w.file.Close()
		w.closed = true
	}
	removeErr := os.Remove(w.partial)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
