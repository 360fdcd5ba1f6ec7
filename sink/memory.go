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
	"bytes"
	"context"
	"sync"
)

// MemorySink keeps committed payloads in memory, keyed by item id. It is
// meant for tests and small bundles.
type MemorySink struct {
	mu      sync.Mutex
	outputs map[string][]byte
	order   []string
	opened  int
	aborted int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		outputs: make(map[string][]byte),
	}
}

func (s *MemorySink) Open(_ context.Context, item Item) (Writer, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	w := &memoryWriter{
		sink: s,
		key:  item.ID.String(),
	}
	w.digestWriter = newDigestWriter(&w.buf)
	return w, nil
}

// Get returns the committed payload for an item id
func (s *MemorySink) Get(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.outputs[id]
	return data, ok
}

// IDs returns the ids of committed payloads in commit order
func (s *MemorySink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Opened returns how many writers were handed out
func (s *MemorySink) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Aborted returns how many writers were aborted
func (s *MemorySink) Aborted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

type memoryWriter struct {
	*digestWriter
	sink   *MemorySink
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.digestWriter.Write(p)
}

func (w *memoryWriter) Commit() (Output, error) {
	if w.closed {
		return Output{}, ErrWriterClosed
	}
	w.closed = true
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	if _, ok := w.sink.outputs[w.key]; !ok {
		w.sink.order = append(w.sink.order, w.key)
	}
	w.sink.outputs[w.key] = w.buf.Bytes()
	return w.output("memory://" + w.key), nil
}

func (w *memoryWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.sink.mu.Lock()
	w.sink.aborted++
	w.sink.mu.Unlock()
	return nil
}
