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

package walker_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/internal/test"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/stream"
	"github.com/pradovic/arweave-ans-104-indexer/tags"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// onlyReader hides Size and ReadAt so the walker sees a plain stream of
// unknown length
type onlyReader struct {
	io.Reader
}

type resultCollector struct {
	mu      sync.Mutex
	results []walker.ItemResult
}

func (c *resultCollector) handle(res walker.ItemResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *resultCollector) outcomes(outcome walker.Outcome) []walker.ItemResult {
	var ret []walker.ItemResult
	for _, res := range c.results {
		if res.Outcome == outcome {
			ret = append(ret, res)
		}
	}
	return ret
}

var walkModes = []struct {
	name    string
	workers int
}{
	{"sequential", 1},
	{"positioned", 4},
}

func newTestWalker(opts ...walker.Option) *walker.Walker {
	opts = append(
		[]walker.Option{walker.WithLogger(slog.New(slog.DiscardHandler))},
		opts...,
	)
	return walker.New(opts...)
}

func testItems(count int, payloadSize int) []test.Item {
	items := make([]test.Item, count)
	for i := range items {
		items[i] = test.NewItem(
			fmt.Sprintf("item-%d", i),
			test.Payload(fmt.Sprintf("payload-%d", i), payloadSize+i),
		)
	}
	return items
}

func requireFatal(t *testing.T, err error, target error) *bundle.FatalError {
	t.Helper()
	require.ErrorIs(t, err, target)
	var fatalErr *bundle.FatalError
	require.True(t, errors.As(err, &fatalErr), "expected *bundle.FatalError, got %T", err)
	assert.True(t, bundle.IsFatal(err))
	return fatalErr
}

func TestWalkLeaves(t *testing.T) {
	for _, mode := range walkModes {
		t.Run(mode.name, func(t *testing.T) {
			items := testItems(3, 1000)
			mem := sink.NewMemorySink()
			w := newTestWalker(walker.WithSink(mem), walker.WithWorkers(mode.workers))
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(items...)))
			require.NoError(t, err)
			assert.True(t, report.Complete)
			assert.Equal(t, "root", report.Bundle)
			assert.Equal(t, 3, report.Found)
			assert.Equal(t, 3, report.Emitted)
			assert.Equal(t, 0, report.Nested)
			assert.Empty(t, report.Skipped)
			assert.Equal(t, int64(1000+1001+1002), report.PayloadBytes)
			for _, item := range items {
				data, ok := mem.Get(item.ID().String())
				require.True(t, ok)
				assert.Equal(t, item.Data, data)
			}
		})
	}
}

func TestWalkEmptyBundle(t *testing.T) {
	empty := make([]byte, bundle.CountFieldSize)
	sources := map[string]io.Reader{
		"sized":   bytes.NewReader(empty),
		"unsized": onlyReader{bytes.NewReader(empty)},
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			mem := sink.NewMemorySink()
			report, err := newTestWalker(walker.WithSink(mem)).Walk(context.Background(), "root", src)
			require.NoError(t, err)
			assert.True(t, report.Complete)
			assert.Equal(t, 0, report.Found)
			assert.Equal(t, 0, report.Emitted)
			assert.Equal(t, 0, mem.Opened())
		})
	}
}

func TestWalkItemResults(t *testing.T) {
	items := testItems(2, 10)
	collector := &resultCollector{}
	w := newTestWalker(walker.WithItemHandler(collector.handle))
	_, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(items...)))
	require.NoError(t, err)
	require.Len(t, collector.results, 2)
	offset := bundle.HeaderSize(2)
	for i, res := range collector.results {
		assert.Equal(t, walker.OutcomeLeaf, res.Outcome)
		assert.Equal(t, items[i].ID(), res.ID)
		assert.Equal(t, "root", res.BundledIn)
		assert.Equal(t, 0, res.Depth)
		assert.Equal(t, offset, res.Offset)
		assert.Equal(t, int64(len(items[i].Encode())), res.Size)
		assert.Equal(t, int64(len(items[i].Data)), res.Output.Size)
		assert.Equal(t, sink.Digest(items[i].Data), res.Output.Digest)
		assert.Equal(t, items[i].Signature, res.Header.Signature)
		assert.NoError(t, res.Err)
		offset += res.Size
	}
}

func TestWalkCorruptItemHeader(t *testing.T) {
	corruptions := []struct {
		name     string
		corrupt  func([]byte) []byte
		expected error
	}{
		{
			name: "unknown signature type",
			corrupt: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b, 9)
				return b
			},
			expected: bundle.ErrUnknownSignatureType,
		},
		{
			name: "invalid presence byte",
			corrupt: func(b []byte) []byte {
				b[2+64+32] = 5
				return b
			},
			expected: bundle.ErrInvalidPresenceByte,
		},
		{
			name: "header exceeds declared size",
			corrupt: func(b []byte) []byte {
				return b[:50]
			},
			expected: bundle.ErrHeaderExceedsDeclaredSize,
		},
		{
			name: "tag count mismatch",
			corrupt: func(b []byte) []byte {
				binary.LittleEndian.PutUint64(b[2+64+32+2:], 3)
				return b
			},
			expected: tags.ErrTagCountMismatch,
		},
	}
	for _, mode := range walkModes {
		for _, corruption := range corruptions {
			t.Run(mode.name+"/"+corruption.name, func(t *testing.T) {
				items := testItems(5, 300)
				entries := make([]test.Entry, len(items))
				for i, item := range items {
					entries[i] = item.Entry()
				}
				entries[2].Data = corruption.corrupt(entries[2].Data)
				mem := sink.NewMemorySink()
				w := newTestWalker(walker.WithSink(mem), walker.WithWorkers(mode.workers))
				report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeEntries(entries...)))
				require.NoError(t, err)
				assert.True(t, report.Complete)
				assert.Equal(t, 5, report.Found)
				assert.Equal(t, 4, report.Emitted)
				require.Len(t, report.Skipped, 1)
				skip := report.Skipped[0]
				assert.Equal(t, items[2].ID().String(), skip.ID)
				assert.Equal(t, "root", skip.BundledIn)
				assert.ErrorIs(t, skip.Err, corruption.expected)
				assert.NotEmpty(t, skip.Reason())
				// Items after the corrupt one must still line up
				for i, item := range items {
					data, ok := mem.Get(item.ID().String())
					if i == 2 {
						assert.False(t, ok)
						continue
					}
					require.True(t, ok, "item %d", i)
					assert.Equal(t, item.Data, data, "item %d", i)
				}
			})
		}
	}
}

func TestWalkNestedBundle(t *testing.T) {
	for _, mode := range walkModes {
		t.Run(mode.name, func(t *testing.T) {
			inner := testItems(3, 200)
			outer := test.NewBundleItem("outer", test.EncodeBundle(inner...))
			collector := &resultCollector{}
			mem := sink.NewMemorySink()
			w := newTestWalker(
				walker.WithSink(mem),
				walker.WithWorkers(mode.workers),
				walker.WithItemHandler(collector.handle),
			)
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(outer)))
			require.NoError(t, err)
			assert.Equal(t, 4, report.Found)
			assert.Equal(t, 3, report.Emitted)
			assert.Equal(t, 1, report.Nested)
			assert.Equal(t, 1, report.MaxDepth)
			assert.Empty(t, report.Skipped)

			leaves := collector.outcomes(walker.OutcomeLeaf)
			require.Len(t, leaves, 3)
			for _, leaf := range leaves {
				assert.Equal(t, outer.ID().String(), leaf.BundledIn)
				assert.Equal(t, 1, leaf.Depth)
			}
			nested := collector.outcomes(walker.OutcomeNested)
			require.Len(t, nested, 1)
			assert.Equal(t, outer.ID(), nested[0].ID)
			assert.Equal(t, "root", nested[0].BundledIn)
			assert.True(t, nested[0].Header.IsBundle())

			// The nested bundle itself is never written out
			_, ok := mem.Get(outer.ID().String())
			assert.False(t, ok)
			for _, item := range inner {
				data, ok := mem.Get(item.ID().String())
				require.True(t, ok)
				assert.Equal(t, item.Data, data)
			}
		})
	}
}

func TestWalkNestedResultFollowsItsItems(t *testing.T) {
	inner := testItems(2, 10)
	outer := test.NewBundleItem("outer", test.EncodeBundle(inner...))
	after := test.NewItem("after", []byte("after"))
	collector := &resultCollector{}
	w := newTestWalker(walker.WithItemHandler(collector.handle))
	_, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(outer, after)))
	require.NoError(t, err)
	var ids []bundle.ID
	for _, res := range collector.results {
		ids = append(ids, res.ID)
	}
	assert.Equal(t, []bundle.ID{inner[0].ID(), inner[1].ID(), outer.ID(), after.ID()}, ids)
}

// nest wraps a bundle holding leaf into levels of nested bundle items
func nest(levels int, leaf test.Item) []byte {
	data := test.EncodeBundle(leaf)
	for i := 0; i < levels; i++ {
		data = test.EncodeBundle(test.NewBundleItem(fmt.Sprintf("level-%d", i), data))
	}
	return data
}

func TestWalkMaxDepth(t *testing.T) {
	leaf := test.NewItem("leaf", []byte("deep"))
	testDefs := []struct {
		name     string
		levels   int
		maxDepth int
		emitted  int
		nested   int
		skipped  int
	}{
		{name: "within limit", levels: 3, maxDepth: 3, emitted: 1, nested: 3},
		{name: "beyond limit", levels: 3, maxDepth: 2, emitted: 0, nested: 2, skipped: 1},
		{name: "nesting disabled", levels: 1, maxDepth: 0, emitted: 0, nested: 0, skipped: 1},
		{name: "deep stack", levels: 200, maxDepth: 500, emitted: 1, nested: 200},
		{name: "default limit", levels: 40, maxDepth: walker.DefaultMaxDepth, nested: 32, skipped: 1},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			w := newTestWalker(walker.WithMaxDepth(testDef.maxDepth))
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(nest(testDef.levels, leaf)))
			require.NoError(t, err)
			assert.Equal(t, testDef.emitted, report.Emitted)
			assert.Equal(t, testDef.nested, report.Nested)
			require.Len(t, report.Skipped, testDef.skipped)
			if testDef.skipped > 0 {
				assert.ErrorIs(t, report.Skipped[0].Err, bundle.ErrMaxDepthExceeded)
				assert.Equal(t, testDef.maxDepth, report.Skipped[0].Depth)
				assert.Equal(t, testDef.maxDepth, report.MaxDepth)
			}
		})
	}
}

func TestWalkSizeMismatch(t *testing.T) {
	data := test.EncodeBundle(testItems(2, 10)...)
	for name, src := range map[string][]byte{
		"trailing bytes": append(bytes.Clone(data), 0),
		"missing bytes":  data[:len(data)-1],
	} {
		t.Run(name, func(t *testing.T) {
			mem := sink.NewMemorySink()
			report, err := newTestWalker(walker.WithSink(mem)).Walk(context.Background(), "root", bytes.NewReader(src))
			fatalErr := requireFatal(t, err, bundle.ErrSizeMismatch)
			assert.Equal(t, "root", fatalErr.Bundle)
			assert.False(t, report.Complete)
			assert.Equal(t, 0, report.Found)
			assert.Equal(t, 0, mem.Opened())
		})
	}
}

func TestWalkTruncatedOffsetTable(t *testing.T) {
	data := test.EncodeBundle(testItems(3, 10)...)[:100]
	sources := map[string]io.Reader{
		"sized":   bytes.NewReader(data),
		"unsized": onlyReader{bytes.NewReader(data)},
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			report, err := newTestWalker().Walk(context.Background(), "root", src)
			fatalErr := requireFatal(t, err, bundle.ErrTruncatedHeader)
			assert.Equal(t, int64(96), fatalErr.Offset)
			assert.Equal(t, 0, report.Found)
			assert.False(t, report.Complete)
		})
	}
}

func TestWalkTruncatedLastPayload(t *testing.T) {
	items := testItems(3, 1000)
	data := test.EncodeBundle(items...)
	mem := sink.NewMemorySink()
	w := newTestWalker(walker.WithSink(mem))
	report, err := w.Walk(context.Background(), "root", onlyReader{bytes.NewReader(data[:len(data)-500])})
	require.NoError(t, err)
	assert.True(t, report.Complete)
	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Emitted)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, items[2].ID().String(), report.Skipped[0].ID)
	assert.ErrorIs(t, report.Skipped[0].Err, stream.ErrUnderrunPayload)
	assert.False(t, bundle.IsFatal(report.Skipped[0].Err))
	// The partial payload must not be committed
	_, ok := mem.Get(items[2].ID().String())
	assert.False(t, ok)
	assert.Equal(t, 1, mem.Aborted())
}

func TestWalkTruncatedBeforeLastItem(t *testing.T) {
	items := testItems(3, 1000)
	data := test.EncodeBundle(items...)
	secondEnd := bundle.HeaderSize(3) + int64(len(items[0].Encode())+len(items[1].Encode()))
	testDefs := []struct {
		name    string
		cut     int64
		emitted int
		skipped int
	}{
		{name: "inside payload", cut: secondEnd - 500, emitted: 1, skipped: 1},
		{name: "at item boundary", cut: secondEnd, emitted: 2},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			report, err := newTestWalker().Walk(
				context.Background(),
				"root",
				onlyReader{bytes.NewReader(data[:testDef.cut])},
			)
			fatalErr := requireFatal(t, err, bundle.ErrTruncatedBundle)
			assert.Equal(t, "root", fatalErr.Bundle)
			assert.Equal(t, secondEnd, fatalErr.Offset)
			assert.False(t, report.Complete)
			assert.Equal(t, testDef.emitted, report.Emitted)
			assert.Len(t, report.Skipped, testDef.skipped)
		})
	}
}

func TestWalkNestedFatal(t *testing.T) {
	inner := test.EncodeBundle(testItems(2, 10)...)
	// One byte more than the nested offset table accounts for
	payload := append(bytes.Clone(inner), 0xff)
	outer := test.NewBundleItem("outer", payload)
	sibling := test.NewItem("sibling", []byte("sibling"))
	data := test.EncodeBundle(outer, sibling)
	nestedStart := bundle.HeaderSize(2) + int64(len(outer.Encode())-len(payload))

	for _, mode := range walkModes {
		t.Run(mode.name+"/unwinds", func(t *testing.T) {
			w := newTestWalker(walker.WithWorkers(mode.workers))
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(data))
			fatalErr := requireFatal(t, err, bundle.ErrSizeMismatch)
			assert.Equal(t, outer.ID().String(), fatalErr.Bundle)
			assert.Equal(t, nestedStart, fatalErr.Offset)
			assert.False(t, report.Complete)
			assert.Equal(t, 0, report.Emitted)
		})
		t.Run(mode.name+"/isolated", func(t *testing.T) {
			mem := sink.NewMemorySink()
			w := newTestWalker(
				walker.WithWorkers(mode.workers),
				walker.WithIsolateNested(true),
				walker.WithSink(mem),
			)
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(data))
			require.NoError(t, err)
			assert.True(t, report.Complete)
			assert.Equal(t, 2, report.Found)
			assert.Equal(t, 1, report.Emitted)
			assert.Equal(t, 0, report.Nested)
			require.Len(t, report.Skipped, 1)
			assert.Equal(t, outer.ID().String(), report.Skipped[0].ID)
			assert.ErrorIs(t, report.Skipped[0].Err, bundle.ErrSizeMismatch)
			got, ok := mem.Get(sibling.ID().String())
			require.True(t, ok)
			assert.Equal(t, []byte("sibling"), got)
		})
	}
}

func TestWalkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestWalker().Walk(ctx, "root", bytes.NewReader(test.EncodeBundle(testItems(2, 10)...)))
	requireFatal(t, err, context.Canceled)
	assert.False(t, report.Complete)
	assert.Equal(t, 0, report.Found)
}

// cancelingSink cancels the walk as soon as a payload is opened
type cancelingSink struct {
	*sink.MemorySink
	cancel context.CancelFunc
}

func (s cancelingSink) Open(ctx context.Context, item sink.Item) (sink.Writer, error) {
	s.cancel()
	return s.MemorySink.Open(ctx, item)
}

func TestWalkCanceledDuringPayload(t *testing.T) {
	for _, mode := range walkModes {
		t.Run(mode.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			mem := sink.NewMemorySink()
			w := newTestWalker(
				walker.WithWorkers(mode.workers),
				walker.WithSink(cancelingSink{MemorySink: mem, cancel: cancel}),
			)
			report, err := w.Walk(ctx, "root", bytes.NewReader(test.EncodeBundle(testItems(3, 100)...)))
			requireFatal(t, err, context.Canceled)
			assert.False(t, report.Complete)
			assert.Equal(t, 0, report.Emitted)
			assert.Empty(t, mem.IDs())
			assert.Equal(t, mem.Opened(), mem.Aborted())
		})
	}
}

// faultySink fails the payload of one item, either on open or on write
type faultySink struct {
	*sink.MemorySink
	id        bundle.ID
	failOpen  bool
	failWrite bool
}

type failingWriter struct {
	sink.Writer
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func (s faultySink) Open(ctx context.Context, item sink.Item) (sink.Writer, error) {
	if item.ID != s.id {
		return s.MemorySink.Open(ctx, item)
	}
	if s.failOpen {
		return nil, errors.New("permission denied")
	}
	w, err := s.MemorySink.Open(ctx, item)
	if err != nil || !s.failWrite {
		return w, err
	}
	return failingWriter{Writer: w}, nil
}

func TestWalkSinkFailure(t *testing.T) {
	items := testItems(3, 100)
	testDefs := []struct {
		name      string
		failOpen  bool
		failWrite bool
		expected  error
	}{
		{name: "open", failOpen: true, expected: bundle.ErrSinkOpen},
		{name: "write", failWrite: true, expected: stream.ErrSinkWrite},
	}
	for _, mode := range walkModes {
		for _, testDef := range testDefs {
			t.Run(mode.name+"/"+testDef.name, func(t *testing.T) {
				mem := sink.NewMemorySink()
				w := newTestWalker(
					walker.WithWorkers(mode.workers),
					walker.WithSink(faultySink{
						MemorySink: mem,
						id:         items[1].ID(),
						failOpen:   testDef.failOpen,
						failWrite:  testDef.failWrite,
					}),
				)
				report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(items...)))
				require.NoError(t, err)
				assert.Equal(t, 2, report.Emitted)
				require.Len(t, report.Skipped, 1)
				assert.Equal(t, items[1].ID().String(), report.Skipped[0].ID)
				assert.ErrorIs(t, report.Skipped[0].Err, testDef.expected)
				_, ok := mem.Get(items[1].ID().String())
				assert.False(t, ok)
			})
		}
	}
}

// chunkSink records the size of every write
type chunkSink struct {
	mu     sync.Mutex
	writes []int
}

type chunkWriter struct {
	sink *chunkSink
}

func (s *chunkSink) Open(context.Context, sink.Item) (sink.Writer, error) {
	return &chunkWriter{sink: s}, nil
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	w.sink.writes = append(w.sink.writes, len(p))
	return len(p), nil
}

func (w *chunkWriter) Commit() (sink.Output, error) {
	return sink.Output{}, nil
}

func (w *chunkWriter) Abort() error {
	return nil
}

func TestWalkPayloadChunking(t *testing.T) {
	const chunkSize = 4096
	for _, mode := range walkModes {
		t.Run(mode.name, func(t *testing.T) {
			item := test.NewItem("large", test.Payload("large", 10*chunkSize))
			s := &chunkSink{}
			w := newTestWalker(
				walker.WithWorkers(mode.workers),
				walker.WithChunkSize(chunkSize),
				walker.WithSink(s),
			)
			report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(item)))
			require.NoError(t, err)
			assert.Equal(t, 1, report.Emitted)
			require.Len(t, s.writes, 10)
			for _, size := range s.writes {
				assert.Equal(t, chunkSize, size)
			}
		})
	}
}

func TestWalkConcurrentExtraction(t *testing.T) {
	items := testItems(32, 5000)
	nested := test.NewBundleItem("nested", test.EncodeBundle(testItems(4, 50)...))
	all := append(append([]test.Item{}, items...), nested)
	mem := sink.NewMemorySink()
	w := newTestWalker(walker.WithWorkers(8), walker.WithSink(mem), walker.WithChunkSize(1024))
	report, err := w.Walk(context.Background(), "root", bytes.NewReader(test.EncodeBundle(all...)))
	require.NoError(t, err)
	assert.Equal(t, 37, report.Found)
	assert.Equal(t, 36, report.Emitted)
	assert.Equal(t, 1, report.Nested)
	for _, item := range items {
		data, ok := mem.Get(item.ID().String())
		require.True(t, ok)
		assert.Equal(t, item.Data, data)
	}
	assert.Equal(t, int64(0), w.Metrics().Stats().ActiveWorkers)
}

func TestWalkSequentialWithWorkers(t *testing.T) {
	// Workers have no effect without positioned reads
	items := testItems(4, 100)
	mem := sink.NewMemorySink()
	w := newTestWalker(walker.WithWorkers(4), walker.WithSink(mem))
	report, err := w.Walk(context.Background(), "root", onlyReader{bytes.NewReader(test.EncodeBundle(items...))})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Emitted)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID().String()
	}
	assert.Equal(t, ids, mem.IDs())
}
