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

// Package walker drives the extraction of ANS-104 bundles. It reads the
// offset table of a bundle, decodes every item header, streams leaf payloads
// into a sink and descends into nested bundles, keeping a running cursor
// driven by the offset table so that a corrupt item never shifts the items
// after it.
//
// Nested bundles are walked with an explicit stack of frames, so adversarial
// nesting is bounded by MaxDepth rather than by the goroutine stack.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/stream"
)

// Walker extracts the items of bundles. A Walker holds no per-walk state and
// may run any number of walks concurrently.
type Walker struct {
	config  Config
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Walker with the given options
func New(opts ...Option) *Walker {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	defaults := DefaultConfig()
	if cfg.Sink == nil {
		cfg.Sink = defaults.Sink
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.MaxOffsetTableSize <= 0 {
		cfg.MaxOffsetTableSize = defaults.MaxOffsetTableSize
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Walker{
		config:  cfg,
		logger:  logger.With("component", "walker"),
		metrics: metrics,
	}
}

// Config returns the effective configuration
func (w *Walker) Config() Config {
	return w.config
}

// Metrics returns the counters updated by this walker
func (w *Walker) Metrics() *Metrics {
	return w.metrics
}

// Walk extracts every item of the bundle read from r. root names the bundle
// in reports and errors, usually the transaction id.
//
// If r reports its total length through a Size() int64 method, the offset
// table is checked against it before any item is read. If r also implements
// io.ReaderAt and more than one worker is configured, items are read with
// positioned reads and leaf payloads are extracted concurrently.
//
// Items that can't be processed are skipped and listed in the report. A
// failure that makes further items impossible to locate aborts the walk with
// a *bundle.FatalError; the report then covers the items processed so far.
func (w *Walker) Walk(ctx context.Context, root string, r io.Reader) (*Report, error) {
	w.metrics.recordWalkStart()
	length := int64(-1)
	if s, ok := r.(sizer); ok {
		length = s.Size()
	}
	var src byteSource
	workers := 1
	if ps, ok := r.(positionedSource); ok && w.config.Workers > 1 {
		src = &readerAtSource{ra: ps, size: ps.Size()}
		workers = w.config.Workers
	} else {
		src = newSequentialSource(r, w.config.ChunkSize)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool, poolCtx := newExtractPool(ctx, workers, w.metrics)
	st := &walk{
		Walker: w,
		ctx:    poolCtx,
		src:    src,
		pool:   pool,
		buf:    make([]byte, w.config.ChunkSize),
		report: &Report{Bundle: root},
	}
	w.logger.Debug(
		"walking bundle",
		"bundle", root,
		"length", length,
		"workers", workers,
	)
	err := st.run(root, length)
	if err != nil {
		cancel()
	}
	if waitErr := pool.wait(); waitErr != nil && err == nil {
		err = &bundle.FatalError{Bundle: root, Err: waitErr}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	report := st.report
	if err != nil {
		w.metrics.recordWalkFailure()
		w.logger.Error(
			"bundle walk failed, results are incomplete",
			"bundle", root,
			"error", err,
			"found", report.Found,
			"emitted", report.Emitted,
			"skipped", len(report.Skipped),
		)
		return report, err
	}
	report.Complete = true
	w.logger.Info(
		"bundle walk complete",
		"bundle", root,
		"found", report.Found,
		"emitted", report.Emitted,
		"nested", report.Nested,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// frame is a bundle being walked: the top-level one or a nested one
type frame struct {
	id    string
	depth int
	// start is the absolute offset of the bundle
	start int64
	// length is the bundle size, or -1 when the input length is unknown
	length int64
	header *bundle.Header
	next   int
	// container is the result for the item carrying a nested bundle
	container *ItemResult
}

// walk is the state of a single Walk call
type walk struct {
	*Walker
	ctx  context.Context
	src  byteSource
	pool *extractPool
	// buf is the copy buffer for sequential extraction
	buf   []byte
	stack []*frame

	// mu guards report and serializes OnItem calls
	mu     sync.Mutex
	report *Report
}

func (st *walk) run(root string, length int64) error {
	st.stack = append(st.stack, &frame{id: root, length: length})
	for len(st.stack) > 0 {
		f := st.stack[len(st.stack)-1]
		if err := st.ctx.Err(); err != nil {
			return st.fatal(f, 0, err)
		}
		var err error
		switch {
		case f.header == nil:
			err = st.readHeader(f)
		case f.next < len(f.header.Entries):
			err = st.step(f)
		default:
			st.finish(f)
		}
		if err != nil && !st.isolate(err) {
			return err
		}
	}
	return nil
}

func (st *walk) readHeader(f *frame) error {
	r, err := st.src.section(st.ctx, f.start, f.length)
	if err != nil {
		return st.sourceError(f, 0, err)
	}
	header, err := bundle.DecodeHeader(r, st.config.MaxOffsetTableSize)
	if err != nil {
		return st.fatal(f, 0, err)
	}
	if f.length >= 0 {
		if err := header.Validate(f.length); err != nil {
			return st.fatal(f, 0, err)
		}
	}
	f.header = header
	st.metrics.recordDepth(f.depth)
	st.mu.Lock()
	st.report.MaxDepth = max(st.report.MaxDepth, f.depth)
	st.mu.Unlock()
	st.logger.Debug(
		"decoded bundle header",
		"bundle", f.id,
		"depth", f.depth,
		"items", header.ItemCount(),
	)
	return nil
}

// step processes the next offset table entry of f
func (st *walk) step(f *frame) error {
	entry := f.header.Entries[f.next]
	f.next++
	res := ItemResult{
		ID:        entry.ID,
		BundledIn: f.id,
		Depth:     f.depth,
		Offset:    f.start + entry.Offset,
		Size:      entry.Size,
	}
	st.mu.Lock()
	st.report.Found++
	st.mu.Unlock()
	st.metrics.recordFound()

	r, err := st.src.section(st.ctx, res.Offset, entry.Size)
	if err != nil {
		return st.sourceError(f, entry.Offset, err)
	}
	header, err := bundle.DecodeItemHeader(r, entry.Size)
	res.Header = header
	if err != nil {
		if bundle.IsFatal(err) {
			return st.fatal(f, entry.Offset, err)
		}
		st.skip(res, err)
		return nil
	}
	if !header.IsBundle() {
		return st.extract(f, res, r)
	}
	if f.depth >= st.config.MaxDepth {
		st.skip(res, fmt.Errorf(
			"%w: nested bundle at depth %d (max %d)",
			bundle.ErrMaxDepthExceeded,
			f.depth+1,
			st.config.MaxDepth,
		))
		return nil
	}
	st.stack = append(st.stack, &frame{
		id:        entry.ID.String(),
		depth:     f.depth + 1,
		start:     res.Offset + header.PayloadOffset,
		length:    header.PayloadLength,
		container: &res,
	})
	return nil
}

// finish pops a completed frame
func (st *walk) finish(f *frame) {
	st.stack = st.stack[:len(st.stack)-1]
	if f.container != nil {
		res := *f.container
		res.Outcome = OutcomeNested
		st.emit(res)
	}
}

// isolate contains a fatal error inside a nested bundle by popping its frame
// and skipping the item carrying it. It reports whether the walk can go on.
func (st *walk) isolate(err error) bool {
	if !st.config.IsolateNested || len(st.stack) < 2 {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, bundle.ErrTruncatedBundle) {
		return false
	}
	f := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	st.skip(*f.container, err)
	return true
}

func (st *walk) extract(f *frame, res ItemResult, item io.Reader) error {
	payload := st.src.payload(
		item,
		res.Offset+res.Header.PayloadOffset,
		res.Header.PayloadLength,
	)
	task := func() error {
		out, err := st.deliver(res, payload)
		if err != nil {
			if bundle.IsFatal(err) {
				return err
			}
			st.skip(res, err)
			return nil
		}
		res.Outcome = OutcomeLeaf
		res.Output = out
		st.emit(res)
		return nil
	}
	if err := st.pool.submit(task); err != nil {
		return st.fatal(f, res.Offset-f.start, err)
	}
	return nil
}

// deliver streams a leaf payload into a new sink writer and commits it. The
// writer is aborted on every failure path.
func (st *walk) deliver(res ItemResult, payload io.Reader) (sink.Output, error) {
	w, err := st.config.Sink.Open(st.ctx, sink.Item{
		ID:        res.ID,
		BundledIn: res.BundledIn,
		Depth:     res.Depth,
		Header:    res.Header,
	})
	if err != nil {
		if ctxErr := st.ctx.Err(); ctxErr != nil {
			return sink.Output{}, ctxErr
		}
		return sink.Output{}, &bundle.IoError{
			Op:  "open sink",
			Err: fmt.Errorf("%w: %w", bundle.ErrSinkOpen, err),
		}
	}
	length := res.Header.PayloadLength
	if st.src.concurrent() {
		_, err = stream.Copy(st.ctx, w, payload, length, st.config.ChunkSize)
	} else {
		_, err = stream.CopyBuffer(st.ctx, w, payload, length, st.buf)
	}
	if err != nil {
		st.abort(res, w)
		if bundle.IsFatal(err) {
			return sink.Output{}, err
		}
		return sink.Output{}, &bundle.IoError{Op: "copy payload", Err: err}
	}
	out, err := w.Commit()
	if err != nil {
		st.abort(res, w)
		return sink.Output{}, &bundle.IoError{
			Op:  "commit payload",
			Err: fmt.Errorf("%w: %w", bundle.ErrSinkCommit, err),
		}
	}
	return out, nil
}

func (st *walk) abort(res ItemResult, w sink.Writer) {
	if err := w.Abort(); err != nil {
		st.logger.Debug(
			"failed to abort payload writer",
			"item_id", res.ID.String(),
			"error", err,
		)
	}
}

func (st *walk) skip(res ItemResult, err error) {
	res.Outcome = OutcomeSkipped
	res.Err = err
	st.logger.Warn(
		"skipping item",
		"bundle", res.BundledIn,
		"item_id", res.ID.String(),
		"depth", res.Depth,
		"offset", res.Offset,
		"error", err,
	)
	st.emit(res)
}

func (st *walk) emit(res ItemResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.report.add(res)
	st.metrics.recordResult(res)
	if st.config.OnItem != nil {
		st.config.OnItem(res)
	}
}

// fatal wraps err as a FatalError at offset off within f
func (st *walk) fatal(f *frame, off int64, err error) error {
	var fatalErr *bundle.FatalError
	if errors.As(err, &fatalErr) {
		off += fatalErr.Offset
		err = fatalErr.Err
	}
	return &bundle.FatalError{Bundle: f.id, Offset: f.start + off, Err: err}
}

func (st *walk) sourceError(f *frame, off int64, err error) error {
	if errors.Is(err, errSourceEnded) {
		err = fmt.Errorf("%w: %v", bundle.ErrTruncatedBundle, err)
	}
	return st.fatal(f, off, err)
}
