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

// Package config holds the settings of the extractor command. Values come
// from built-in defaults, then an optional YAML file, then command line flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/jinzhu/copier"
	"github.com/pradovic/arweave-ans-104-indexer/gateway"
	"github.com/pradovic/arweave-ans-104-indexer/manifest"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
	"github.com/pradovic/arweave-ans-104-indexer/stream"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Output        string   `yaml:"output"`
	Gateway       string   `yaml:"gateway"`
	MaxDepth      int      `yaml:"maxDepth"`
	ChunkSize     int      `yaml:"chunkSize"`
	Workers       int      `yaml:"workers"`
	IsolateNested bool     `yaml:"isolateNested"`
	Compress      string   `yaml:"compress"`
	ZstdLevel     int      `yaml:"zstdLevel"`
	Manifest      string   `yaml:"manifest"`
	MetricsFile   string   `yaml:"metricsFile"`
	Logging       Logging  `yaml:"logging"`
	S3            S3Config `yaml:"s3"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// S3Config selects object storage output when Endpoint and Bucket are set
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Insecure  bool   `yaml:"insecure"`
}

// Enabled reports whether payloads go to object storage
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" || c.Bucket != ""
}

func Default() Config {
	return Config{
		Output:    "bundle",
		Gateway:   gateway.DefaultURL,
		MaxDepth:  walker.DefaultMaxDepth,
		ChunkSize: stream.DefaultChunkSize,
		Workers:   1,
		Compress:  string(sink.CompressionNone),
		Manifest:  string(manifest.FormatJSONLines),
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults overlaid with the non-empty values of the YAML
// file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(cfg, data)
}

// Parse overlays the non-empty values of a YAML document on base
func Parse(base Config, data []byte) (Config, error) {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}
	cfg := base
	if err := copier.CopyWithOption(&cfg, &file, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return base, fmt.Errorf("merge config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the command cannot use
func (c Config) Validate() error {
	var errs []error
	if c.Output == "" && !c.S3.Enabled() {
		errs = append(errs, errors.New("output must not be empty"))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("maxDepth must not be negative: %d", c.MaxDepth))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunkSize must be positive: %d", c.ChunkSize))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive: %d", c.Workers))
	}
	if _, err := sink.ParseCompression(c.Compress); err != nil {
		errs = append(errs, err)
	}
	if _, err := manifest.ParseFormat(c.Manifest); err != nil {
		errs = append(errs, err)
	}
	if c.S3.Enabled() && (c.S3.Endpoint == "" || c.S3.Bucket == "") {
		errs = append(errs, errors.New("s3 output needs both an endpoint and a bucket"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
