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

package test

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/tags"
)

// Item describes a data item to encode for tests
type Item struct {
	SignatureType bundle.SignatureType
	Signature     []byte
	Owner         []byte
	Target        *bundle.ID
	Anchor        *bundle.ID
	Tags          tags.Tags
	Data          []byte
}

// NewItem returns an ED25519 item whose signature and owner are derived from
// seed, so distinct seeds give distinct item ids
func NewItem(seed string, data []byte, ts ...tags.Tag) Item {
	return NewItemWithType(bundle.SignatureTypeED25519, seed, data, ts...)
}

// NewItemWithType is like NewItem for any known signature type
func NewItemWithType(sigType bundle.SignatureType, seed string, data []byte, ts ...tags.Tag) Item {
	cfg, ok := sigType.Config()
	if !ok {
		panic("unknown signature type")
	}
	sig := sha512.Sum512([]byte("signature:" + seed))
	owner := sha256.Sum256([]byte("owner:" + seed))
	return Item{
		SignatureType: sigType,
		Signature:     fill(sig[:], cfg.SignatureLength),
		Owner:         fill(owner[:], cfg.OwnerLength),
		Tags:          ts,
		Data:          data,
	}
}

// NewBundleItem returns an item carrying the nested bundle markers whose
// payload is the given encoded bundle
func NewBundleItem(seed string, inner []byte, ts ...tags.Tag) Item {
	ts = append(
		tags.Tags{
			tags.New(tags.BundleFormatName, tags.BundleFormatBinary),
			tags.New(tags.BundleVersionName, tags.BundleVersion),
		},
		ts...,
	)
	return NewItem(seed, inner, ts...)
}

// Header returns the item header as the decoder should produce it
func (i Item) Header() *bundle.ItemHeader {
	return &bundle.ItemHeader{
		SignatureType: i.SignatureType,
		Signature:     i.Signature,
		Owner:         i.Owner,
		Target:        i.Target,
		Anchor:        i.Anchor,
		Tags:          i.Tags,
	}
}

// ID returns the item id
func (i Item) ID() bundle.ID {
	return bundle.IDFromSignature(i.Signature)
}

// Encode returns the full binary item
func (i Item) Encode() []byte {
	header, err := bundle.EncodeItemHeader(i.Header())
	if err != nil {
		panic(err)
	}
	return append(header, i.Data...)
}

// Entry returns the offset table entry and bytes of the item
func (i Item) Entry() Entry {
	return Entry{ID: i.ID(), Data: i.Encode()}
}

// Entry is a raw offset table row with the bytes stored for it. Data does
// not need to be a valid item.
type Entry struct {
	ID   bundle.ID
	Data []byte
	// Size overrides the declared size when non-zero
	Size int64
}

// EncodeBundle encodes a bundle holding the given items
func EncodeBundle(items ...Item) []byte {
	entries := make([]Entry, len(items))
	for idx, item := range items {
		entries[idx] = item.Entry()
	}
	return EncodeEntries(entries...)
}

// EncodeEntries encodes a bundle from raw entries
func EncodeEntries(entries ...Entry) []byte {
	table := make([]bundle.OffsetEntry, len(entries))
	var body bytes.Buffer
	for idx, e := range entries {
		size := e.Size
		if size == 0 {
			size = int64(len(e.Data))
		}
		table[idx] = bundle.OffsetEntry{Size: size, ID: e.ID}
		body.Write(e.Data)
	}
	return append(bundle.EncodeHeader(table), body.Bytes()...)
}

// Payload returns deterministic pseudo-random bytes of the given size
func Payload(seed string, size int) []byte {
	ret := make([]byte, 0, size+sha512.Size)
	block := sha512.Sum512([]byte(seed))
	for len(ret) < size {
		ret = append(ret, block[:]...)
		block = sha512.Sum512(block[:])
	}
	return ret[:size]
}

func fill(src []byte, size int) []byte {
	ret := make([]byte, size)
	for i := range ret {
		ret[i] = src[i%len(src)]
	}
	return ret
}
