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

package common_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pradovic/arweave-ans-104-indexer/cmd/common"
	"github.com/pradovic/arweave-ans-104-indexer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	f := common.NewGlobalFlags("test")
	require.NoError(t, f.Parse(nil))
	cfg, err := f.Config()
	require.NoError(t, err)
	def := config.Default()
	cfg.S3 = def.S3
	assert.Equal(t, def, cfg)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "output: from-file\nworkers: 4\nmanifest: cbor\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f := common.NewGlobalFlags("test")
	require.NoError(t, f.Parse([]string{"--config", path, "--workers", "2", "--max-depth=0", "tx"}))
	cfg, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Output)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 0, cfg.MaxDepth)
	assert.Equal(t, "cbor", cfg.Manifest)
	assert.Equal(t, []string{"tx"}, f.Flagset.Args())
}

func TestConfigInvalid(t *testing.T) {
	f := common.NewGlobalFlags("test")
	require.NoError(t, f.Parse([]string{"--compress", "lz4"}))
	_, err := f.Config()
	assert.Error(t, err)

	f = common.NewGlobalFlags("test")
	assert.Error(t, f.Parse([]string{"--no-such-flag"}))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := common.NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "item_id", "abc")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "abc", rec["item_id"])

	_, err = common.NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = common.NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
