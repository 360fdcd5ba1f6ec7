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

package sink

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3-256 digest of data, as reported in Output
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// digestWriter hashes and counts everything written through it
type digestWriter struct {
	w      io.Writer
	hasher *blake3.Hasher
	size   int64
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{
		w:      w,
		hasher: blake3.New(),
	}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	_, _ = d.hasher.Write(p[:n])
	d.size += int64(n)
	return n, err
}

func (d *digestWriter) output(location string) Output {
	return Output{
		Location: location,
		Size:     d.size,
		Digest:   hex.EncodeToString(d.hasher.Sum(nil)),
	}
}
