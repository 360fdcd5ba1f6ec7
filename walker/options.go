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
	"log/slog"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/stream"
)

// DefaultMaxDepth is the default limit for nested bundle levels. Real
// bundles rarely nest more than two or three levels deep.
const DefaultMaxDepth = 32

// ItemHandler is called once for every item the walker finishes with.
// Calls are serialized, even when leaves are extracted concurrently.
type ItemHandler func(ItemResult)

// Config holds configuration for a Walker.
type Config struct {
	// MaxDepth limits how many levels of nested bundles are expanded.
	// Items that would go deeper are skipped with ErrMaxDepthExceeded.
	MaxDepth int
	// MaxOffsetTableSize bounds the offset table a bundle may declare.
	MaxOffsetTableSize int64
	// ChunkSize is the buffer size for payload copies.
	ChunkSize int
	// Workers is the number of concurrent leaf extractions. More than one
	// worker only takes effect for sources supporting positioned reads.
	Workers int
	// IsolateNested turns fatal errors inside a nested bundle into a skip
	// of the item carrying it. Cancellation and truncation of the input
	// stream still abort the walk.
	IsolateNested bool
	// Sink receives leaf payloads. Defaults to sink.DiscardSink.
	Sink sink.Sink
	// Logger receives skip and progress logs. Defaults to slog.Default().
	Logger *slog.Logger
	// OnItem is called for every leaf, nested bundle and skipped item.
	OnItem ItemHandler
	// Metrics accumulates counters across walks. A fresh set is created
	// per walker when nil.
	Metrics *Metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:           DefaultMaxDepth,
		MaxOffsetTableSize: bundle.DefaultMaxOffsetTableSize,
		ChunkSize:          stream.DefaultChunkSize,
		Workers:            1,
		Sink:               sink.DiscardSink{},
	}
}

// Option is a functional option for configuring a Walker.
type Option func(*Config)

// WithConfig applies a complete Config, replacing all default values.
// Options applied after WithConfig still override its values.
func WithConfig(config Config) Option {
	return func(c *Config) {
		*c = config
	}
}

// WithMaxDepth sets the nested bundle depth limit. Zero disables expansion
// of nested bundles entirely.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxDepth = n
		}
	}
}

// WithMaxOffsetTableSize sets the largest offset table a bundle may declare.
func WithMaxOffsetTableSize(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.MaxOffsetTableSize = size
		}
	}
}

// WithChunkSize sets the payload copy buffer size.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithWorkers sets the number of concurrent leaf extractions.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithIsolateNested sets whether fatal errors in nested bundles are
// contained to the item carrying the nested bundle.
func WithIsolateNested(isolate bool) Option {
	return func(c *Config) {
		c.IsolateNested = isolate
	}
}

// WithSink sets the payload destination. A nil sink is ignored.
func WithSink(s sink.Sink) Option {
	return func(c *Config) {
		if s != nil {
			c.Sink = s
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithItemHandler sets the per-item callback.
func WithItemHandler(fn ItemHandler) Option {
	return func(c *Config) {
		c.OnItem = fn
	}
}

// WithMetrics shares a metrics set, typically one registered with a
// Prometheus registry, across walkers.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}
