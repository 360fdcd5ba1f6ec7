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

package stream_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradovic/arweave-ans-104-indexer/stream"
)

// chunkRecorder records the size of every write it receives
type chunkRecorder struct {
	bytes.Buffer
	writes   int
	maxWrite int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.writes++
	if len(p) > c.maxWrite {
		c.maxWrite = len(p)
	}
	return c.Buffer.Write(p)
}

type failingWriter struct {
	after int
	count int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.count >= f.after {
		return 0, errors.New("disk full")
	}
	f.count++
	return len(p), nil
}

func randomBytes(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestCopyLargePayloadInChunks(t *testing.T) {
	const chunkSize = 4096
	payload := randomBytes(t, chunkSize*10)
	dst := &chunkRecorder{}

	n, err := stream.Copy(context.Background(), dst, bytes.NewReader(payload), int64(len(payload)), chunkSize)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, 10, dst.writes)
	assert.LessOrEqual(t, dst.maxWrite, chunkSize)
}

func TestCopyStopsAtLength(t *testing.T) {
	src := bytes.NewReader([]byte("0123456789abcdef"))
	var dst bytes.Buffer

	n, err := stream.Copy(context.Background(), &dst, src, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "0123456789", dst.String())
	// The rest of the source is left for the next reader
	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(rest))
}

func TestCopyShortReads(t *testing.T) {
	payload := randomBytes(t, 1000)
	var dst bytes.Buffer

	n, err := stream.Copy(
		context.Background(),
		&dst,
		iotest.OneByteReader(bytes.NewReader(payload)),
		int64(len(payload)),
		64,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
}

func TestCopyZeroLength(t *testing.T) {
	var dst bytes.Buffer
	n, err := stream.Copy(context.Background(), &dst, bytes.NewReader(nil), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyUnderrun(t *testing.T) {
	var dst bytes.Buffer
	n, err := stream.Copy(context.Background(), &dst, bytes.NewReader([]byte("short")), 100, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, stream.ErrUnderrunPayload)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "short", dst.String())
}

func TestCopySourceError(t *testing.T) {
	readErr := errors.New("connection reset")
	var dst bytes.Buffer
	_, err := stream.Copy(context.Background(), &dst, iotest.ErrReader(readErr), 10, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, stream.ErrSourceRead)
	assert.ErrorIs(t, err, readErr)
}

func TestCopySinkError(t *testing.T) {
	payload := randomBytes(t, 100)
	_, err := stream.Copy(
		context.Background(),
		&failingWriter{after: 2},
		bytes.NewReader(payload),
		int64(len(payload)),
		10,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, stream.ErrSinkWrite)
}

func TestCopyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var dst bytes.Buffer
	n, err := stream.Copy(ctx, &dst, bytes.NewReader(randomBytes(t, 100)), 100, 10)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestDiscard(t *testing.T) {
	src := bytes.NewReader([]byte("skip-me|keep"))
	n, err := stream.Discard(context.Background(), src, 8, make([]byte, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(rest))
}
