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

// Package manifest records item metadata produced by a bundle walk. Records
// can be written as JSON lines or as a CBOR sequence, one record per item.
package manifest

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/tags"
	"github.com/pradovic/arweave-ans-104-indexer/walker"
)

// Tag is a tag rendered for output. Names and values that are valid UTF-8
// are kept as text, anything else is base64url encoded.
type Tag struct {
	Name  string `json:"name"  cbor:"name"`
	Value string `json:"value" cbor:"value"`
}

// Record is the metadata of one item
type Record struct {
	ID            string `json:"id"                       cbor:"id"`
	BundledIn     string `json:"bundled_in"               cbor:"bundled_in"`
	Depth         int    `json:"depth"                    cbor:"depth"`
	Outcome       string `json:"outcome"                  cbor:"outcome"`
	Offset        int64  `json:"offset"                   cbor:"offset"`
	Size          int64  `json:"size"                     cbor:"size"`
	SignatureType string `json:"signature_type,omitempty" cbor:"signature_type,omitempty"`
	Signature     string `json:"signature,omitempty"      cbor:"signature,omitempty"`
	Owner         string `json:"owner,omitempty"          cbor:"owner,omitempty"`
	OwnerAddress  string `json:"owner_address,omitempty"  cbor:"owner_address,omitempty"`
	NativeAddress string `json:"native_address,omitempty" cbor:"native_address,omitempty"`
	Target        string `json:"target,omitempty"         cbor:"target,omitempty"`
	Anchor        string `json:"anchor,omitempty"         cbor:"anchor,omitempty"`
	Tags          []Tag  `json:"tags,omitempty"           cbor:"tags,omitempty"`
	IsBundle      bool   `json:"is_bundle"                cbor:"is_bundle"`
	DataSize      int64  `json:"data_size"                cbor:"data_size"`
	Location      string `json:"location,omitempty"       cbor:"location,omitempty"`
	Digest        string `json:"digest,omitempty"         cbor:"digest,omitempty"`
	Error         string `json:"error,omitempty"          cbor:"error,omitempty"`
}

// NewRecord builds the record for a walk result. Header fields are filled
// in as far as the header was decoded.
func NewRecord(res walker.ItemResult) Record {
	rec := Record{
		ID:        res.ID.String(),
		BundledIn: res.BundledIn,
		Depth:     res.Depth,
		Outcome:   res.Outcome.String(),
		Offset:    res.Offset,
		Size:      res.Size,
		Location:  res.Output.Location,
		Digest:    res.Output.Digest,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if h := res.Header; h != nil {
		if h.SignatureType != 0 {
			rec.SignatureType = h.SignatureType.String()
		}
		rec.Signature = encodeBytes(h.Signature)
		if len(h.Owner) > 0 {
			rec.Owner = encodeBytes(h.Owner)
			rec.OwnerAddress = h.OwnerAddress()
			rec.NativeAddress = h.NativeAddress()
		}
		rec.Target = optionalID(h.Target)
		rec.Anchor = optionalID(h.Anchor)
		rec.Tags = renderTags(h.Tags)
		rec.IsBundle = h.IsBundle()
		rec.DataSize = h.PayloadLength
	}
	return rec
}

func renderTags(ts tags.Tags) []Tag {
	if len(ts) == 0 {
		return nil
	}
	ret := make([]Tag, len(ts))
	for i, t := range ts {
		ret[i] = Tag{
			Name:  renderTagBytes(t.Name),
			Value: renderTagBytes(t.Value),
		}
	}
	return ret
}

func renderTagBytes(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return encodeBytes(b)
}

func encodeBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func optionalID(id *bundle.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
