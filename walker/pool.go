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
	"context"

	"golang.org/x/sync/errgroup"
)

// extractPool runs leaf extractions. With a single worker tasks run inline
// on the walking goroutine; otherwise up to workers tasks run concurrently
// and the first task error cancels the rest.
type extractPool struct {
	group   *errgroup.Group
	metrics *Metrics
}

// newExtractPool returns the pool and the context tasks and the walk loop
// must observe
func newExtractPool(ctx context.Context, workers int, metrics *Metrics) (*extractPool, context.Context) {
	if workers <= 1 {
		return &extractPool{metrics: metrics}, ctx
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &extractPool{group: group, metrics: metrics}, groupCtx
}

// submit runs fn, blocking while all workers are busy. Inline tasks return
// their error directly; concurrent task errors surface from wait.
func (p *extractPool) submit(fn func() error) error {
	task := func() error {
		p.metrics.activeWorkers.Add(1)
		defer p.metrics.activeWorkers.Add(-1)
		return fn()
	}
	if p.group == nil {
		return task()
	}
	p.group.Go(task)
	return nil
}

// wait blocks until every submitted task has finished
func (p *extractPool) wait() error {
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}
