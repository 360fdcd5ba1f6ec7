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

package bundle

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// CountFieldSize is the width of the item count at the start of a bundle
	CountFieldSize = 32
	// EntrySize is the width of one offset table entry (size + id)
	EntrySize = 64
	// IDSize is the width of item ids, targets and anchors
	IDSize = 32

	// DefaultMaxOffsetTableSize bounds the offset table a bundle may declare.
	// 64MiB allows roughly one million items.
	DefaultMaxOffsetTableSize = 64 * 1024 * 1024
)

// ID is a 32-byte identifier: an item id, target or anchor
type ID [IDSize]byte

// String returns the base64url form used by Arweave
func (id ID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseID decodes the base64url form of an id
func ParseID(s string) (ID, error) {
	var ret ID
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ret, fmt.Errorf("decode id: %w", err)
	}
	if len(data) != IDSize {
		return ret, fmt.Errorf("decode id: got %d bytes, expected %d", len(data), IDSize)
	}
	copy(ret[:], data)
	return ret, nil
}

// IDFromSignature derives an item id from its signature
func IDFromSignature(signature []byte) ID {
	return sha256.Sum256(signature)
}

// OffsetEntry is one row of the offset table
type OffsetEntry struct {
	// Size is the declared size of the item in bytes
	Size int64
	ID   ID
	// Offset is where the item starts, relative to the start of the bundle
	Offset int64
}

// Header is a decoded bundle header
type Header struct {
	Entries []OffsetEntry
}

// ItemCount returns the number of items in the bundle
func (h *Header) ItemCount() int {
	return len(h.Entries)
}

// Size returns the size of the encoded header in bytes
func (h *Header) Size() int64 {
	return HeaderSize(len(h.Entries))
}

// DataSize returns the sum of all declared item sizes
func (h *Header) DataSize() int64 {
	if len(h.Entries) == 0 {
		return 0
	}
	last := h.Entries[len(h.Entries)-1]
	return last.Offset + last.Size - h.Size()
}

// TotalSize returns the byte length the whole bundle must have
func (h *Header) TotalSize() int64 {
	return h.Size() + h.DataSize()
}

// Validate checks the header against the actual length of the bundle
func (h *Header) Validate(length int64) error {
	if total := h.TotalSize(); total != length {
		return fmt.Errorf(
			"%w: header and items declare %d bytes, bundle has %d",
			ErrSizeMismatch,
			total,
			length,
		)
	}
	return nil
}

// HeaderSize returns the encoded size of a header for count items
func HeaderSize(count int) int64 {
	return CountFieldSize + EntrySize*int64(count)
}

// DecodeHeader reads the item count and offset table from r. Every failure
// is fatal for the bundle: without a complete table no item can be located.
// maxTableSize bounds the offset table size that may be declared, and
// defaults to DefaultMaxOffsetTableSize when <= 0.
func DecodeHeader(r io.Reader, maxTableSize int64) (*Header, error) {
	if maxTableSize <= 0 {
		maxTableSize = DefaultMaxOffsetTableSize
	}
	var countField [CountFieldSize]byte
	if err := readHeaderField(r, countField[:], 0, "item count"); err != nil {
		return nil, err
	}
	count, ok := decodeLE256(countField[:])
	if !ok || count > uint64(maxTableSize/EntrySize) {
		return nil, &FatalError{
			Err: fmt.Errorf(
				"%w: 0x%x exceeds maximum of %d entries",
				ErrUnreasonableItemCount,
				reverse(countField[:]),
				maxTableSize/EntrySize,
			),
		}
	}
	// Grow the table as entries arrive rather than trusting the count
	entries := make([]OffsetEntry, 0, min(count, 4096))
	offset := HeaderSize(int(count))
	var entry [EntrySize]byte
	for i := uint64(0); i < count; i++ {
		// #nosec G115 -- count is bounded by maxTableSize
		entryOffset := HeaderSize(int(i))
		if err := readHeaderField(r, entry[:], entryOffset, fmt.Sprintf("entry %d", i)); err != nil {
			return nil, err
		}
		size, ok := decodeLE256(entry[:32])
		if !ok || int64(size) > math.MaxInt64-offset {
			return nil, &FatalError{
				Offset: entryOffset,
				Err: fmt.Errorf(
					"%w: entry %d declares 0x%x bytes",
					ErrEntrySizeOverflow,
					i,
					reverse(entry[:32]),
				),
			}
		}
		e := OffsetEntry{
			// #nosec G115 -- checked against MaxInt64 above
			Size:   int64(size),
			Offset: offset,
		}
		copy(e.ID[:], entry[32:])
		entries = append(entries, e)
		offset += e.Size
	}
	return &Header{Entries: entries}, nil
}

func readHeaderField(r io.Reader, buf []byte, offset int64, field string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: reading %s", ErrTruncatedHeader, field)
		} else {
			err = fmt.Errorf("reading %s: %w", field, err)
		}
		return &FatalError{Offset: offset, Err: err}
	}
	return nil
}

// decodeLE256 decodes a 256-bit little-endian integer. The second return
// value is false if the value doesn't fit in 63 bits.
func decodeLE256(b []byte) (uint64, bool) {
	for _, v := range b[8:] {
		if v != 0 {
			return 0, false
		}
	}
	ret := binary.LittleEndian.Uint64(b[:8])
	return ret, ret <= math.MaxInt64
}

// encodeLE256 is the inverse of decodeLE256
func encodeLE256(dst []byte, v uint64) {
	clear(dst)
	binary.LittleEndian.PutUint64(dst[:8], v)
}

// reverse returns a big-endian copy of a little-endian field for display
func reverse(b []byte) []byte {
	ret := make([]byte, len(b))
	for i, v := range b {
		ret[len(b)-1-i] = v
	}
	return ret
}
