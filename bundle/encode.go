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
	"encoding/binary"
	"fmt"

	"github.com/pradovic/arweave-ans-104-indexer/tags"
)

// EncodeItemHeader serializes the header fields of a data item, everything
// up to the payload. TagCount and TagsSize are derived from Tags.
func EncodeItemHeader(h *ItemHeader) ([]byte, error) {
	cfg, ok := h.SignatureType.Config()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSignatureType, uint16(h.SignatureType))
	}
	if len(h.Signature) != cfg.SignatureLength {
		return nil, fmt.Errorf(
			"signature is %d bytes, %s requires %d",
			len(h.Signature),
			cfg.Name,
			cfg.SignatureLength,
		)
	}
	if len(h.Owner) != cfg.OwnerLength {
		return nil, fmt.Errorf(
			"owner is %d bytes, %s requires %d",
			len(h.Owner),
			cfg.Name,
			cfg.OwnerLength,
		)
	}
	tagBytes := tags.Encode(h.Tags)
	buf := make([]byte, 0, 2+len(h.Signature)+len(h.Owner)+2+2*IDSize+16+len(tagBytes))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.SignatureType))
	buf = append(buf, h.Signature...)
	buf = append(buf, h.Owner...)
	buf = appendOptionalID(buf, h.Target)
	buf = appendOptionalID(buf, h.Anchor)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(h.Tags)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tagBytes)))
	buf = append(buf, tagBytes...)
	return buf, nil
}

// EncodeHeader serializes a bundle header for items of the given sizes and
// ids. The Offset field of the entries is ignored.
func EncodeHeader(entries []OffsetEntry) []byte {
	buf := make([]byte, HeaderSize(len(entries)))
	encodeLE256(buf[:CountFieldSize], uint64(len(entries)))
	for i, e := range entries {
		start := HeaderSize(i)
		// #nosec G115 -- sizes are non-negative
		encodeLE256(buf[start:start+32], uint64(e.Size))
		copy(buf[start+32:start+EntrySize], e.ID[:])
	}
	return buf
}

func appendOptionalID(buf []byte, id *ID) []byte {
	if id == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, id[:]...)
}
