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

package common

import (
	"fmt"
	"os"

	"github.com/pradovic/arweave-ans-104-indexer/config"
	"github.com/spf13/pflag"
)

// GlobalFlags are the flags shared by the extractor commands. Each flag
// overrides the matching config value only when given on the command line.
type GlobalFlags struct {
	Flagset       *pflag.FlagSet
	ConfigFile    string
	Output        string
	Gateway       string
	MaxDepth      int
	ChunkSize     int
	Workers       int
	IsolateNested bool
	Compress      string
	Manifest      string
	MetricsFile   string
	LogLevel      string
	LogFormat     string
	S3Endpoint    string
	S3Bucket      string
	S3Prefix      string
	S3Insecure    bool
}

func NewGlobalFlags(name string) *GlobalFlags {
	def := config.Default()
	f := &GlobalFlags{
		Flagset: pflag.NewFlagSet(name, pflag.ContinueOnError),
	}
	f.Flagset.StringVarP(&f.ConfigFile, "config", "c", "", "YAML config file")
	f.Flagset.StringVarP(
		&f.Output,
		"output",
		"o",
		def.Output,
		"path prefix of extracted payloads, written as <output>_<item-id>",
	)
	f.Flagset.StringVar(&f.Gateway, "gateway", def.Gateway, "Arweave gateway URL")
	f.Flagset.IntVar(
		&f.MaxDepth,
		"max-depth",
		def.MaxDepth,
		"maximum nesting depth of bundles (0 disables nested bundles)",
	)
	f.Flagset.IntVar(&f.ChunkSize, "chunk-size", def.ChunkSize, "payload copy chunk size in bytes")
	f.Flagset.IntVar(
		&f.Workers,
		"workers",
		def.Workers,
		"concurrent payload extractions; more than 1 uses HTTP range requests",
	)
	f.Flagset.BoolVar(
		&f.IsolateNested,
		"isolate-nested",
		def.IsolateNested,
		"skip a corrupt nested bundle instead of failing the whole walk",
	)
	f.Flagset.StringVar(&f.Compress, "compress", def.Compress, "payload compression: none or zstd")
	f.Flagset.StringVar(&f.Manifest, "manifest", def.Manifest, "item manifest format: jsonl, cbor or none")
	f.Flagset.StringVar(
		&f.MetricsFile,
		"metrics-file",
		"",
		"write walk metrics in Prometheus text format to this file",
	)
	f.Flagset.StringVar(&f.LogLevel, "log-level", def.Logging.Level, "log level: debug, info, warn or error")
	f.Flagset.StringVar(&f.LogFormat, "log-format", def.Logging.Format, "log format: text or json")
	f.Flagset.StringVar(&f.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint for payload output")
	f.Flagset.StringVar(&f.S3Bucket, "s3-bucket", "", "bucket for payload output")
	f.Flagset.StringVar(&f.S3Prefix, "s3-prefix", "", "object key prefix")
	f.Flagset.BoolVar(&f.S3Insecure, "s3-insecure", false, "connect to the S3 endpoint without TLS")
	return f
}

func (f *GlobalFlags) Parse(args []string) error {
	if err := f.Flagset.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command args: %w", err)
	}
	return nil
}

// Config loads the config file, if any, and applies the flags given on the
// command line. S3 credentials are read from the environment when not
// configured.
func (f *GlobalFlags) Config() (config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return cfg, err
	}
	changed := f.Flagset.Changed
	if changed("output") {
		cfg.Output = f.Output
	}
	if changed("gateway") {
		cfg.Gateway = f.Gateway
	}
	if changed("max-depth") {
		cfg.MaxDepth = f.MaxDepth
	}
	if changed("chunk-size") {
		cfg.ChunkSize = f.ChunkSize
	}
	if changed("workers") {
		cfg.Workers = f.Workers
	}
	if changed("isolate-nested") {
		cfg.IsolateNested = f.IsolateNested
	}
	if changed("compress") {
		cfg.Compress = f.Compress
	}
	if changed("manifest") {
		cfg.Manifest = f.Manifest
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.MetricsFile
	}
	if changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if changed("s3-endpoint") {
		cfg.S3.Endpoint = f.S3Endpoint
	}
	if changed("s3-bucket") {
		cfg.S3.Bucket = f.S3Bucket
	}
	if changed("s3-prefix") {
		cfg.S3.Prefix = f.S3Prefix
	}
	if changed("s3-insecure") {
		cfg.S3.Insecure = f.S3Insecure
	}
	if cfg.S3.AccessKey == "" {
		cfg.S3.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.S3.SecretKey == "" {
		cfg.S3.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	return cfg, cfg.Validate()
}
