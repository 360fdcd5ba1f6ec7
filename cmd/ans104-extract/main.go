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

// ans104-extract fetches an ANS-104 bundle from an Arweave gateway and writes
// the payload of every data item it contains, including items of nested
// bundles, to local files or an S3-compatible bucket.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/compress/zstd"
	"github.com/pradovic/arweave-ans-104-indexer/cmd/common"
	"github.com/pradovic/arweave-ans-104-indexer/config"
	"github.com/pradovic/arweave-ans-104-indexer/gateway"
	"github.com/pradovic/arweave-ans-104-indexer/manifest"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

const programName = "ans104-extract"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f := common.NewGlobalFlags(programName)
	f.Flagset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <tx-id>\n\nFlags:\n", programName)
		f.Flagset.PrintDefaults()
	}
	if err := f.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if f.Flagset.NArg() != 1 {
		f.Flagset.Usage()
		return errors.New("expected exactly one transaction id")
	}
	txID := gateway.TrimTxID(f.Flagset.Arg(0))
	if err := gateway.ValidateTxID(txID); err != nil {
		return err
	}
	cfg, err := f.Config()
	if err != nil {
		return err
	}
	logger, err := common.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return extract(ctx, logger, cfg, txID)
}

func extract(ctx context.Context, logger *slog.Logger, cfg config.Config, txID string) error {
	client, err := gateway.New(cfg.Gateway, gateway.WithLogger(logger))
	if err != nil {
		return err
	}
	out, err := newSink(cfg)
	if err != nil {
		return err
	}
	metrics := walker.NewMetrics()
	opts := []walker.Option{
		walker.WithMaxDepth(cfg.MaxDepth),
		walker.WithChunkSize(cfg.ChunkSize),
		walker.WithWorkers(cfg.Workers),
		walker.WithIsolateNested(cfg.IsolateNested),
		walker.WithSink(out),
		walker.WithLogger(logger),
		walker.WithMetrics(metrics),
	}

	format, err := manifest.ParseFormat(cfg.Manifest)
	if err != nil {
		return err
	}
	var records *manifest.Writer
	if format != manifest.FormatNone {
		path := cfg.Output + ".manifest" + format.Extension()
		mf, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create manifest: %w", err)
		}
		defer mf.Close()
		records, err = manifest.NewWriter(mf, format)
		if err != nil {
			return err
		}
		opts = append(opts, walker.WithItemHandler(records.Handle))
		logger.Debug("writing manifest", "path", path, "format", format)
	}

	src, err := openSource(ctx, client, txID, cfg.Workers)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", txID, err)
	}
	defer src.Close()

	logger.Info("walking bundle", "tx_id", txID, "gateway", cfg.Gateway, "workers", cfg.Workers)
	w := walker.New(opts...)
	report, walkErr := w.Walk(ctx, txID, src)
	printSummary(os.Stdout, report)

	if records != nil && records.Err() != nil {
		logger.Error("manifest is incomplete", "error", records.Err())
	}
	if cfg.MetricsFile != "" {
		reg := prometheus.NewPedanticRegistry()
		reg.MustRegister(walker.NewCollector(metrics))
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}
	if walkErr != nil {
		return fmt.Errorf("extraction incomplete: %w", walkErr)
	}
	if records != nil {
		return records.Err()
	}
	return nil
}

// source is the bundle data of a transaction
type source interface {
	io.Reader
	io.Closer
}

type nopCloser struct {
	*io.SectionReader
}

func (nopCloser) Close() error { return nil }

// openSource streams the transaction for a single worker. Several workers
// read through range requests so payloads can be fetched concurrently.
func openSource(ctx context.Context, client *gateway.Client, txID string, workers int) (source, error) {
	if workers <= 1 {
		return client.Open(ctx, txID)
	}
	r, err := client.OpenRange(ctx, txID)
	if err != nil {
		return nil, err
	}
	return nopCloser{io.NewSectionReader(r, 0, r.Size())}, nil
}

func newSink(cfg config.Config) (sink.Sink, error) {
	if cfg.S3.Enabled() {
		client, err := sink.NewObjectClient(sink.ObjectConfig{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    !cfg.S3.Insecure,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return sink.NewObjectSink(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	compression, err := sink.ParseCompression(cfg.Compress)
	if err != nil {
		return nil, err
	}
	opts := []sink.FileOption{sink.WithCompression(compression)}
	if cfg.ZstdLevel > 0 {
		opts = append(opts, sink.WithZstdLevel(zstd.EncoderLevelFromZstd(cfg.ZstdLevel)))
	}
	return sink.NewFileSink(cfg.Output, opts...), nil
}

func printSummary(w io.Writer, report *walker.Report) {
	if report == nil {
		return
	}
	status := "complete"
	if !report.Complete {
		status = "INCOMPLETE"
	}
	fmt.Fprintf(w, "bundle %s: %s\n", report.Bundle, status)
	fmt.Fprintf(w, "  items found:     %d\n", report.Found)
	fmt.Fprintf(w, "  payloads:        %d (%d bytes)\n", report.Emitted, report.PayloadBytes)
	fmt.Fprintf(w, "  nested bundles:  %d (max depth %d)\n", report.Nested, report.MaxDepth)
	fmt.Fprintf(w, "  skipped items:   %d\n", len(report.Skipped))
	for _, skip := range report.Skipped {
		fmt.Fprintf(w, "    %s (in %s): %s\n", skip.ID, skip.BundledIn, skip.Reason())
	}
}
