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

package walker

import (
	"github.com/pradovic/arweave-ans-104-indexer/bundle"
	"github.com/pradovic/arweave-ans-104-indexer/sink"
)

// Outcome is what the walker did with an item
type Outcome int

const (
	// OutcomeLeaf items had their payload delivered to the sink
	OutcomeLeaf Outcome = iota
	// OutcomeNested items carried a bundle that was walked in turn
	OutcomeNested
	// OutcomeSkipped items could not be processed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLeaf:
		return "leaf"
	case OutcomeNested:
		return "nested"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ItemResult describes one finished item. With sequential extraction a
// nested bundle's result is reported after the results of its items.
type ItemResult struct {
	// ID is the id from the offset table
	ID bundle.ID
	// BundledIn is the id of the bundle directly containing the item
	BundledIn string
	Depth     int
	// Offset is the absolute position of the item in the input
	Offset int64
	// Size is the declared size from the offset table
	Size    int64
	Outcome Outcome
	// Header may be partial or nil for skipped items
	Header *bundle.ItemHeader
	// Output is set for leaves
	Output sink.Output
	// Err is set for skipped items
	Err error
}

// Skip records an item that was not processed and why
type Skip struct {
	ID        string
	BundledIn string
	Depth     int
	Err       error
}

// Reason returns the error message of the skip
func (s Skip) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Report summarizes a walk. After a fatal error it covers the items
// processed before the failure.
type Report struct {
	// Bundle is the id given for the top-level bundle
	Bundle string
	// Found counts items located through offset tables at every depth
	Found int
	// Emitted counts leaves committed to the sink
	Emitted int
	// Nested counts nested bundles walked to completion
	Nested int
	// Skipped lists items that were not processed, in completion order
	Skipped []Skip
	// PayloadBytes is the total size of emitted payloads
	PayloadBytes int64
	// MaxDepth is the deepest nested level reached
	MaxDepth int
	// Complete is false when the walk stopped on a fatal error
	Complete bool
}

func (r *Report) add(res ItemResult) {
	switch res.Outcome {
	case OutcomeLeaf:
		r.Emitted++
		r.PayloadBytes += res.Output.Size
	case OutcomeNested:
		r.Nested++
	case OutcomeSkipped:
		r.Skipped = append(r.Skipped, Skip{
			ID:        res.ID.String(),
			BundledIn: res.BundledIn,
			Depth:     res.Depth,
			Err:       res.Err,
		})
	}
}
