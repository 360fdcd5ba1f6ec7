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

// Package tags implements the ANS-104 tag block: an Avro-encoded array of
// name/value byte-string records attached to every data item.
package tags

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxTags is the largest number of tags a data item may carry.
	MaxTags = 128
	// MaxNameSize is the largest allowed tag name, in bytes.
	MaxNameSize = 1024
	// MaxValueSize is the largest allowed tag value, in bytes.
	MaxValueSize = 3072
)

// Tag names and values that mark a data item as a nested bundle.
const (
	BundleFormatName   = "Bundle-Format"
	BundleFormatBinary = "binary"
	BundleVersionName  = "Bundle-Version"
	BundleVersion      = "2.0.0"
)

var (
	ErrEmptyTag      = errors.New("tag name and value must not be empty")
	ErrNameTooLarge  = errors.New("tag name too large")
	ErrValueTooLarge = errors.New("tag value too large")
	ErrTooManyTags   = errors.New("too many tags")
)

// Tag is a single name/value pair. Names and values are arbitrary bytes,
// although in practice they are almost always UTF-8.
type Tag struct {
	Name  []byte
	Value []byte
}

// New returns a Tag built from string name and value
func New(name, value string) Tag {
	return Tag{Name: []byte(name), Value: []byte(value)}
}

func (t Tag) String() string {
	return fmt.Sprintf("%s=%s", displayBytes(t.Name), displayBytes(t.Value))
}

// Validate checks the tag against the ANS-104 size limits.
func (t Tag) Validate() error {
	if len(t.Name) == 0 || len(t.Value) == 0 {
		return ErrEmptyTag
	}
	if len(t.Name) > MaxNameSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrNameTooLarge, len(t.Name), MaxNameSize)
	}
	if len(t.Value) > MaxValueSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrValueTooLarge, len(t.Value), MaxValueSize)
	}
	return nil
}

// Is reports whether the tag has exactly the given name and value
func (t Tag) Is(name, value string) bool {
	return string(t.Name) == name && string(t.Value) == value
}

// Tags is an ordered list of tags. Order is significant and duplicate names
// are preserved.
type Tags []Tag

// Validate checks the tag count and every tag against the ANS-104 limits.
func (ts Tags) Validate() error {
	if len(ts) > MaxTags {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyTags, len(ts), MaxTags)
	}
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tag %d: %w", i, err)
		}
	}
	return nil
}

// Get returns the value of the first tag with the given name.
func (ts Tags) Get(name string) ([]byte, bool) {
	for _, t := range ts {
		if string(t.Name) == name {
			return t.Value, true
		}
	}
	return nil, false
}

// GetAll returns the values of every tag with the given name, in order.
func (ts Tags) GetAll(name string) [][]byte {
	var ret [][]byte
	for _, t := range ts {
		if string(t.Name) == name {
			ret = append(ret, t.Value)
		}
	}
	return ret
}

// IsBundle reports whether the tags mark the item as a binary ANS-104 bundle.
// Both the Bundle-Format and Bundle-Version markers must be present.
func (ts Tags) IsBundle() bool {
	var format, version bool
	for _, t := range ts {
		switch {
		case t.Is(BundleFormatName, BundleFormatBinary):
			format = true
		case t.Is(BundleVersionName, BundleVersion):
			version = true
		}
	}
	return format && version
}

// Equal reports whether both lists hold the same tags in the same order.
func (ts Tags) Equal(other Tags) bool {
	if len(ts) != len(other) {
		return false
	}
	for i := range ts {
		if !bytes.Equal(ts[i].Name, other[i].Name) ||
			!bytes.Equal(ts[i].Value, other[i].Value) {
			return false
		}
	}
	return true
}

func displayBytes(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("0x%x", b)
}
