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

package tags

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTagCountMismatch is returned when the tag block holds a different
	// number of records than the item header declares.
	ErrTagCountMismatch = errors.New("tag count mismatch")
	// ErrTruncatedTag is returned when a length prefix or varint runs past
	// the end of the tag block.
	ErrTruncatedTag = errors.New("truncated tag")
	// ErrMalformedTags is returned for encodings that cannot be valid Avro,
	// such as negative lengths, overflowing varints or trailing bytes.
	ErrMalformedTags = errors.New("malformed tag block")
)

// Decode parses an Avro array<record{name: bytes, value: bytes}> from data.
// The block must contain exactly count records and nothing after the array
// terminator. An empty block decodes to zero tags.
func Decode(data []byte, count uint64) (Tags, error) {
	if len(data) == 0 {
		if count != 0 {
			return nil, fmt.Errorf(
				"%w: header declares %d, block is empty",
				ErrTagCountMismatch,
				count,
			)
		}
		return nil, nil
	}
	d := &decoder{data: data}
	var ret Tags
	for {
		blockCount, err := d.readLong()
		if err != nil {
			return nil, fmt.Errorf("block count: %w", err)
		}
		if blockCount == 0 {
			break
		}
		if blockCount < 0 {
			if blockCount == math.MinInt64 {
				return nil, fmt.Errorf("%w: block count overflow", ErrMalformedTags)
			}
			blockCount = -blockCount
			// A negative count is followed by the block size in bytes, which
			// we don't need since records are decoded in full anyway
			if _, err := d.readLong(); err != nil {
				return nil, fmt.Errorf("block size: %w", err)
			}
		}
		// #nosec G115 -- blockCount is positive here
		if uint64(len(ret))+uint64(blockCount) > count {
			return nil, fmt.Errorf(
				"%w: header declares %d, block contains at least %d",
				ErrTagCountMismatch,
				count,
				uint64(len(ret))+uint64(blockCount),
			)
		}
		for i := int64(0); i < blockCount; i++ {
			name, err := d.readBytes()
			if err != nil {
				return nil, fmt.Errorf("tag %d name: %w", len(ret), err)
			}
			value, err := d.readBytes()
			if err != nil {
				return nil, fmt.Errorf("tag %d value: %w", len(ret), err)
			}
			ret = append(ret, Tag{Name: name, Value: value})
		}
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf(
			"%w: %d trailing bytes after array terminator",
			ErrMalformedTags,
			len(d.data)-d.pos,
		)
	}
	if uint64(len(ret)) != count {
		return nil, fmt.Errorf(
			"%w: header declares %d, block contains %d",
			ErrTagCountMismatch,
			count,
			len(ret),
		)
	}
	return ret, nil
}

// Encode serializes tags in the same format Decode accepts. The output is
// deterministic: a single block followed by the terminator, or no bytes at
// all for an empty list.
func Encode(ts Tags) []byte {
	if len(ts) == 0 {
		return []byte{}
	}
	size := binary.MaxVarintLen64 + 1
	for _, t := range ts {
		size += 2*binary.MaxVarintLen64 + len(t.Name) + len(t.Value)
	}
	buf := make([]byte, 0, size)
	buf = binary.AppendVarint(buf, int64(len(ts)))
	for _, t := range ts {
		buf = binary.AppendVarint(buf, int64(len(t.Name)))
		buf = append(buf, t.Name...)
		buf = binary.AppendVarint(buf, int64(len(t.Value)))
		buf = append(buf, t.Value...)
	}
	// Array terminator
	buf = append(buf, 0)
	return buf
}

type decoder struct {
	data []byte
	pos  int
}

// readLong reads a zigzag varint, which is how Avro encodes both int and long
func (d *decoder) readLong() (int64, error) {
	v, n := binary.Varint(d.data[d.pos:])
	switch {
	case n == 0:
		return 0, fmt.Errorf("%w: varint at offset %d", ErrTruncatedTag, d.pos)
	case n < 0:
		return 0, fmt.Errorf("%w: varint overflow at offset %d", ErrMalformedTags, d.pos)
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readBytes() ([]byte, error) {
	start := d.pos
	length, err := d.readLong()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d at offset %d", ErrMalformedTags, length, start)
	}
	remaining := int64(len(d.data) - d.pos)
	if length > remaining {
		return nil, fmt.Errorf(
			"%w: length %d at offset %d exceeds %d remaining bytes",
			ErrTruncatedTag,
			length,
			start,
			remaining,
		)
	}
	ret := make([]byte, length)
	copy(ret, d.data[d.pos:])
	d.pos += int(length)
	return ret, nil
}
