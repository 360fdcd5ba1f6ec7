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
	"io"
)

// DiscardSink drops payloads, reporting only their size and digest
type DiscardSink struct{}

func (DiscardSink) Open(context.Context, Item) (Writer, error) {
	return &discardWriter{digestWriter: newDigestWriter(io.Discard)}, nil
}

type discardWriter struct {
	*digestWriter
	closed bool
}

func (w *discardWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.digestWriter.Write(p)
}

func (w *discardWriter) Commit() (Output, error) {
	if w.closed {
		return Output{}, ErrWriterClosed
	}
	w.closed = true
	return w.output(""), nil
}

func (w *discardWriter) Abort() error {
	w.closed = true
	return nil
}
