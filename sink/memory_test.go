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

package sink_test

import (
	"context"
	"testing"

	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink(t *testing.T) {
	s := sink.NewMemorySink()
	first := testItem("first")
	second := testItem("second")

	w, err := s.Open(context.Background(), first)
	require.NoError(t, err)
	_, err = w.Write([]byte("kept"))
	require.NoError(t, err)
	out, err := w.Commit()
	require.NoError(t, err)
	assert.Equal(t, "memory://"+first.ID.String(), out.Location)
	assert.Equal(t, sink.Digest([]byte("kept")), out.Digest)

	w, err = s.Open(context.Background(), second)
	require.NoError(t, err)
	_, err = w.Write([]byte("dropped"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	data, ok := s.Get(first.ID.String())
	assert.True(t, ok)
	assert.Equal(t, []byte("kept"), data)
	_, ok = s.Get(second.ID.String())
	assert.False(t, ok)
	assert.Equal(t, []string{first.ID.String()}, s.IDs())
	assert.Equal(t, 2, s.Opened())
	assert.Equal(t, 1, s.Aborted())
}

func TestDiscardSink(t *testing.T) {
	w, err := sink.DiscardSink{}.Open(context.Background(), testItem("x"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	out, err := w.Commit()
	require.NoError(t, err)
	assert.Equal(t, sink.Output{Size: 3, Digest: sink.Digest([]byte("abc"))}, out)
	_, err = w.Write([]byte("abc"))
	assert.ErrorIs(t, err, sink.ErrWriterClosed)
}
