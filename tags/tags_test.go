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

package tags_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradovic/arweave-ans-104-indexer/tags"
)

func TestIsBundle(t *testing.T) {
	testDefs := []struct {
		name string
		tags tags.Tags
		want bool
	}{
		{
			name: "format and version",
			tags: tags.Tags{
				tags.New("Bundle-Format", "binary"),
				tags.New("Bundle-Version", "2.0.0"),
			},
			want: true,
		},
		{
			name: "markers among other tags",
			tags: tags.Tags{
				tags.New("App-Name", "bundler"),
				tags.New("Bundle-Version", "2.0.0"),
				tags.New("Content-Type", "application/octet-stream"),
				tags.New("Bundle-Format", "binary"),
			},
			want: true,
		},
		{
			name: "format only",
			tags: tags.Tags{tags.New("Bundle-Format", "binary")},
		},
		{
			name: "json bundle",
			tags: tags.Tags{
				tags.New("Bundle-Format", "json"),
				tags.New("Bundle-Version", "2.0.0"),
			},
		},
		{
			name: "older version",
			tags: tags.Tags{
				tags.New("Bundle-Format", "binary"),
				tags.New("Bundle-Version", "1.0.0"),
			},
		},
		{
			name: "no tags",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.Equal(t, testDef.want, testDef.tags.IsBundle())
		})
	}
}

func TestValidate(t *testing.T) {
	valid := tags.Tags{tags.New("Content-Type", "text/plain")}
	require.NoError(t, valid.Validate())

	empty := tags.Tags{{Name: []byte("name")}}
	assert.ErrorIs(t, empty.Validate(), tags.ErrEmptyTag)

	longName := tags.Tags{{Name: bytes.Repeat([]byte("n"), tags.MaxNameSize+1), Value: []byte("v")}}
	assert.ErrorIs(t, longName.Validate(), tags.ErrNameTooLarge)

	longValue := tags.Tags{{Name: []byte("n"), Value: bytes.Repeat([]byte("v"), tags.MaxValueSize+1)}}
	assert.ErrorIs(t, longValue.Validate(), tags.ErrValueTooLarge)

	atLimit := tags.Tags{{
		Name:  bytes.Repeat([]byte("n"), tags.MaxNameSize),
		Value: bytes.Repeat([]byte("v"), tags.MaxValueSize),
	}}
	assert.NoError(t, atLimit.Validate())

	tooMany := make(tags.Tags, tags.MaxTags+1)
	for i := range tooMany {
		tooMany[i] = tags.New("k", "v")
	}
	assert.ErrorIs(t, tooMany.Validate(), tags.ErrTooManyTags)
}

func TestGet(t *testing.T) {
	ts := tags.Tags{
		tags.New("Content-Type", "image/png"),
		tags.New("Topic", "a"),
		tags.New("Topic", "b"),
	}
	value, ok := ts.Get("Topic")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), value)

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, ts.GetAll("Topic"))

	_, ok = ts.Get("Missing")
	assert.False(t, ok)
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "a=b", tags.New("a", "b").String())
	assert.Equal(t, "0xff=b", tags.Tag{Name: []byte{0xff}, Value: []byte("b")}.String())
}
