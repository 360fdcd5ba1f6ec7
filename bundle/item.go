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
	"errors"
	"fmt"
	"io"

	"github.com/pradovic/arweave-ans-104-indexer/tags"
)

// MaxTagsSize bounds the tag block of a single item. It comfortably holds
// MaxTags tags of maximum size with their length prefixes.
const MaxTagsSize = tags.MaxTags*(tags.MaxNameSize+tags.MaxValueSize+2*binary.MaxVarintLen64) +
	2*binary.MaxVarintLen64

// ItemHeader holds everything in a data item except its payload
type ItemHeader struct {
	SignatureType SignatureType
	Signature     []byte
	Owner         []byte
	Target        *ID
	Anchor        *ID
	// TagCount and TagsSize are the values declared in the header
	TagCount uint64
	TagsSize uint64
	Tags     tags.Tags
	// PayloadOffset is where the payload starts, relative to the start of
	// the item. It is also the size of the encoded header.
	PayloadOffset int64
	// PayloadLength is the declared item size minus the header size
	PayloadLength int64
}

// ID returns the item id, the SHA-256 of the signature
func (h *ItemHeader) ID() ID {
	return IDFromSignature(h.Signature)
}

// IsBundle reports whether the item's payload is itself a bundle
func (h *ItemHeader) IsBundle() bool {
	return h.Tags.IsBundle()
}

// OwnerAddress returns the normalized owner address
func (h *ItemHeader) OwnerAddress() string {
	return OwnerAddress(h.Owner)
}

// NativeAddress returns the owner address in the notation of its chain
func (h *ItemHeader) NativeAddress() string {
	return NativeAddress(h.SignatureType, h.Owner)
}

// ContentType returns the value of the Content-Type tag, if any
func (h *ItemHeader) ContentType() string {
	if v, ok := h.Tags.Get("Content-Type"); ok {
		return string(v)
	}
	return ""
}

// DecodeItemHeader reads a data item header from r, which must be positioned
// at the start of the item. declaredSize is the item size from the offset
// table and bounds every read. On failure the returned header holds the
// fields decoded so far and the error is a *DecodeError (malformed header)
// or an *IoError (the stream failed or ended inside the item).
func DecodeItemHeader(r io.Reader, declaredSize int64) (*ItemHeader, error) {
	d := &itemDecoder{
		r:        r,
		declared: declaredSize,
		header:   &ItemHeader{},
	}
	if err := d.decode(); err != nil {
		return d.header, err
	}
	return d.header, nil
}

type itemDecoder struct {
	r        io.Reader
	declared int64
	pos      int64
	header   *ItemHeader
}

func (d *itemDecoder) decode() error {
	h := d.header
	buf, err := d.read("signature type", 2)
	if err != nil {
		return err
	}
	h.SignatureType = SignatureType(binary.LittleEndian.Uint16(buf))
	cfg, ok := h.SignatureType.Config()
	if !ok {
		return d.decodeError(
			"signature type",
			fmt.Errorf("%w: %d", ErrUnknownSignatureType, uint16(h.SignatureType)),
		)
	}
	if h.Signature, err = d.read("signature", int64(cfg.SignatureLength)); err != nil {
		return err
	}
	if h.Owner, err = d.read("owner", int64(cfg.OwnerLength)); err != nil {
		return err
	}
	if h.Target, err = d.readOptionalID("target"); err != nil {
		return err
	}
	if h.Anchor, err = d.readOptionalID("anchor"); err != nil {
		return err
	}
	if buf, err = d.read("tag count", 8); err != nil {
		return err
	}
	h.TagCount = binary.LittleEndian.Uint64(buf)
	if h.TagCount > tags.MaxTags {
		return d.decodeError(
			"tag count",
			fmt.Errorf("%w: %d (max %d)", ErrTooManyTags, h.TagCount, tags.MaxTags),
		)
	}
	if buf, err = d.read("tag bytes length", 8); err != nil {
		return err
	}
	h.TagsSize = binary.LittleEndian.Uint64(buf)
	if h.TagsSize > MaxTagsSize {
		return d.decodeError(
			"tag bytes length",
			fmt.Errorf("%w: %d bytes (max %d)", ErrTagsTooLarge, h.TagsSize, MaxTagsSize),
		)
	}
	tagsStart := d.pos
	// #nosec G115 -- bounded by MaxTagsSize
	tagBytes, err := d.read("tags", int64(h.TagsSize))
	if err != nil {
		return err
	}
	decoded, err := tags.Decode(tagBytes, h.TagCount)
	if err != nil {
		return &DecodeError{Field: "tags", Offset: tagsStart, Err: err}
	}
	if err := decoded.Validate(); err != nil {
		return &DecodeError{
			Field:  "tags",
			Offset: tagsStart,
			Err:    fmt.Errorf("%w: %w", ErrInvalidTag, err),
		}
	}
	h.Tags = decoded
	h.PayloadOffset = d.pos
	h.PayloadLength = d.declared - d.pos
	return nil
}

// read reads exactly n bytes, refusing to cross the declared item boundary
func (d *itemDecoder) read(field string, n int64) ([]byte, error) {
	if n > d.declared-d.pos {
		return nil, d.decodeError(
			field,
			fmt.Errorf(
				"%w: %s needs %d bytes, %d of %d remain",
				ErrHeaderExceedsDeclaredSize,
				field,
				n,
				max(d.declared-d.pos, 0),
				d.declared,
			),
		)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrItemTruncated
		}
		return nil, &IoError{
			Op:  fmt.Sprintf("read %s at item offset %d", field, d.pos),
			Err: err,
		}
	}
	d.pos += n
	return buf, nil
}

func (d *itemDecoder) readOptionalID(field string) (*ID, error) {
	flag, err := d.read(field+" flag", 1)
	if err != nil {
		return nil, err
	}
	switch flag[0] {
	case 0:
		return nil, nil
	case 1:
		buf, err := d.read(field, IDSize)
		if err != nil {
			return nil, err
		}
		var id ID
		copy(id[:], buf)
		return &id, nil
	default:
		return nil, &DecodeError{
			Field:  field + " flag",
			Offset: d.pos - 1,
			Err:    fmt.Errorf("%w: 0x%02x", ErrInvalidPresenceByte, flag[0]),
		}
	}
}

func (d *itemDecoder) decodeError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Offset: d.pos, Err: err}
}
