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

package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
)

// Format selects the manifest encoding
type Format string

const (
	FormatNone      Format = "none"
	FormatJSONLines Format = "jsonl"
	FormatCBOR      Format = "cbor"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatNone, FormatJSONLines, FormatCBOR:
		return f, nil
	case "":
		return FormatNone, nil
	}
	return "", fmt.Errorf("unknown manifest format %q", name)
}

// Extension returns the file name suffix for the format
func (f Format) Extension() string {
	switch f {
	case FormatJSONLines:
		return ".jsonl"
	case FormatCBOR:
		return ".cbor"
	default:
		return ""
	}
}

var (
	cachedEncMode     _cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once

	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

// getEncMode returns a cached EncMode producing deterministic output
func getEncMode() (_cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		opts := _cbor.CoreDetEncOptions()
		cachedEncMode, cachedEncModeErr = opts.EncMode()
	})
	return cachedEncMode, cachedEncModeErr
}

func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		opts := _cbor.DecOptions{
			ExtraReturnErrors: _cbor.ExtraDecErrorUnknownField,
		}
		cachedDecMode, cachedDecModeErr = opts.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

type encoder interface {
	Encode(v any) error
}

// Writer appends records to an io.Writer. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	enc   encoder
	count int
	err   error
}

func NewWriter(w io.Writer, format Format) (*Writer, error) {
	var enc encoder
	switch format {
	case FormatJSONLines:
		enc = json.NewEncoder(w)
	case FormatCBOR:
		em, err := getEncMode()
		if err != nil {
			return nil, err
		}
		enc = em.NewEncoder(w)
	default:
		return nil, fmt.Errorf("manifest format %q can't be written", format)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one record
func (m *Writer) Write(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enc.Encode(rec); err != nil {
		return fmt.Errorf("write manifest record %s: %w", rec.ID, err)
	}
	m.count++
	return nil
}

// Handle writes the record for a walk result. It can be used directly as a
// walker.ItemHandler. The first write error is kept and returned by Err.
func (m *Writer) Handle(res walker.ItemResult) {
	if err := m.Write(NewRecord(res)); err != nil {
		m.mu.Lock()
		if m.err == nil {
			m.err = err
		}
		m.mu.Unlock()
	}
}

// Err returns the first error seen by Handle
func (m *Writer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Count returns the number of records written
func (m *Writer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// ReadAll decodes every record from r
func ReadAll(r io.Reader, format Format) ([]Record, error) {
	var dec interface{ Decode(v any) error }
	switch format {
	case FormatJSONLines:
		jsonDec := json.NewDecoder(r)
		jsonDec.DisallowUnknownFields()
		dec = jsonDec
	case FormatCBOR:
		dm, err := getDecMode()
		if err != nil {
			return nil, err
		}
		dec = dm.NewDecoder(r)
	default:
		return nil, fmt.Errorf("manifest format %q can't be read", format)
	}
	var ret []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return ret, nil
			}
			return ret, fmt.Errorf("read manifest record %d: %w", len(ret), err)
		}
		ret = append(ret, rec)
	}
}
