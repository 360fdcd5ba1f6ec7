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
	"testing"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/stream"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := walker.DefaultConfig()
	assert.Equal(t, walker.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, int64(bundle.DefaultMaxOffsetTableSize), cfg.MaxOffsetTableSize)
	assert.Equal(t, stream.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.IsolateNested)
	assert.Equal(t, sink.DiscardSink{}, cfg.Sink)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	w := walker.New(
		walker.WithMaxDepth(-1),
		walker.WithMaxOffsetTableSize(0),
		walker.WithChunkSize(0),
		walker.WithWorkers(0),
		walker.WithSink(nil),
		walker.WithLogger(nil),
		walker.WithMetrics(nil),
	)
	cfg := w.Config()
	defaults := walker.DefaultConfig()
	assert.Equal(t, defaults.MaxDepth, cfg.MaxDepth)
	assert.Equal(t, defaults.MaxOffsetTableSize, cfg.MaxOffsetTableSize)
	assert.Equal(t, defaults.ChunkSize, cfg.ChunkSize)
	assert.Equal(t, defaults.Workers, cfg.Workers)
	assert.NotNil(t, cfg.Sink)
	assert.NotNil(t, w.Metrics())
}

func TestOptions(t *testing.T) {
	mem := sink.NewMemorySink()
	w := walker.New(
		walker.WithMaxDepth(3),
		walker.WithMaxOffsetTableSize(1024),
		walker.WithChunkSize(512),
		walker.WithWorkers(6),
		walker.WithIsolateNested(true),
		walker.WithSink(mem),
	)
	cfg := w.Config()
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, int64(1024), cfg.MaxOffsetTableSize)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 6, cfg.Workers)
	assert.True(t, cfg.IsolateNested)
	assert.Same(t, mem, cfg.Sink)
}

func TestWithConfig(t *testing.T) {
	cfg := walker.DefaultConfig()
	cfg.MaxDepth = 7
	w := walker.New(walker.WithConfig(cfg), walker.WithWorkers(2))
	assert.Equal(t, 7, w.Config().MaxDepth)
	assert.Equal(t, 2, w.Config().Workers)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "leaf", walker.OutcomeLeaf.String())
	assert.Equal(t, "nested", walker.OutcomeNested.String())
	assert.Equal(t, "skipped", walker.OutcomeSkipped.String())
	assert.Equal(t, "unknown", walker.Outcome(9).String())
}
