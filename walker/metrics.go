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
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks counters across walks.
// Uses atomic counters for thread-safe operation.
type Metrics struct {
	walksStarted  atomic.Uint64
	walksFailed   atomic.Uint64
	itemsFound    atomic.Uint64
	leavesEmitted atomic.Uint64
	nestedBundles atomic.Uint64
	itemsSkipped  atomic.Uint64
	payloadBytes  atomic.Uint64
	activeWorkers atomic.Int64
	peakDepth     atomic.Int64

	mu            sync.RWMutex
	lastItemTime  time.Time
	lastWalkStart time.Time
}

// Stats is a snapshot of Metrics
type Stats struct {
	WalksStarted  uint64
	WalksFailed   uint64
	ItemsFound    uint64
	LeavesEmitted uint64
	NestedBundles uint64
	ItemsSkipped  uint64
	PayloadBytes  uint64
	ActiveWorkers int64
	PeakDepth     int64
	LastItemTime  time.Time
	LastWalkStart time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordWalkStart() {
	m.walksStarted.Add(1)
	m.mu.Lock()
	m.lastWalkStart = time.Now()
	m.mu.Unlock()
}

func (m *Metrics) recordWalkFailure() {
	m.walksFailed.Add(1)
}

func (m *Metrics) recordFound() {
	m.itemsFound.Add(1)
}

func (m *Metrics) recordResult(res ItemResult) {
	switch res.Outcome {
	case OutcomeLeaf:
		m.leavesEmitted.Add(1)
		// #nosec G115 -- payload sizes are never negative
		m.payloadBytes.Add(uint64(res.Output.Size))
	case OutcomeNested:
		m.nestedBundles.Add(1)
	case OutcomeSkipped:
		m.itemsSkipped.Add(1)
	}
	m.mu.Lock()
	m.lastItemTime = time.Now()
	m.mu.Unlock()
}

func (m *Metrics) recordDepth(depth int) {
	for {
		peak := m.peakDepth.Load()
		if int64(depth) <= peak ||
			m.peakDepth.CompareAndSwap(peak, int64(depth)) {
			return
		}
	}
}

// Stats returns a snapshot of the current metrics.
func (m *Metrics) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		WalksStarted:  m.walksStarted.Load(),
		WalksFailed:   m.walksFailed.Load(),
		ItemsFound:    m.itemsFound.Load(),
		LeavesEmitted: m.leavesEmitted.Load(),
		NestedBundles: m.nestedBundles.Load(),
		ItemsSkipped:  m.itemsSkipped.Load(),
		PayloadBytes:  m.payloadBytes.Load(),
		ActiveWorkers: m.activeWorkers.Load(),
		PeakDepth:     m.peakDepth.Load(),
		LastItemTime:  m.lastItemTime,
		LastWalkStart: m.lastWalkStart,
	}
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.walksStarted.Store(0)
	m.walksFailed.Store(0)
	m.itemsFound.Store(0)
	m.leavesEmitted.Store(0)
	m.nestedBundles.Store(0)
	m.itemsSkipped.Store(0)
	m.payloadBytes.Store(0)
	m.peakDepth.Store(0)

	m.mu.Lock()
	m.lastItemTime = time.Time{}
	m.lastWalkStart = time.Time{}
	m.mu.Unlock()
}

const metricsNamespace = "ans104"

var (
	walksStartedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "walks_started_total"),
		"Bundle walks started.",
		nil, nil,
	)
	walksFailedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "walks_failed_total"),
		"Bundle walks aborted by a fatal error.",
		nil, nil,
	)
	itemsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "items_total"),
		"Items finished, by outcome.",
		[]string{"outcome"}, nil,
	)
	itemsFoundDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "items_found_total"),
		"Items located through offset tables.",
		nil, nil,
	)
	payloadBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "payload_bytes_total"),
		"Payload bytes committed to the sink.",
		nil, nil,
	)
	activeWorkersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "active_workers"),
		"Leaf extractions currently running.",
		nil, nil,
	)
	peakDepthDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "walker", "peak_depth"),
		"Deepest nested bundle level reached.",
		nil, nil,
	)
)

// Collector exports Metrics to Prometheus
type Collector struct {
	metrics *Metrics
}

func NewCollector(m *Metrics) *Collector {
	return &Collector{metrics: m}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- walksStartedDesc
	ch <- walksFailedDesc
	ch <- itemsDesc
	ch <- itemsFoundDesc
	ch <- payloadBytesDesc
	ch <- activeWorkersDesc
	ch <- peakDepthDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Stats()
	ch <- prometheus.MustNewConstMetric(walksStartedDesc, prometheus.CounterValue, float64(s.WalksStarted))
	ch <- prometheus.MustNewConstMetric(walksFailedDesc, prometheus.CounterValue, float64(s.WalksFailed))
	ch <- prometheus.MustNewConstMetric(itemsDesc, prometheus.CounterValue, float64(s.LeavesEmitted), OutcomeLeaf.String())
	ch <- prometheus.MustNewConstMetric(itemsDesc, prometheus.CounterValue, float64(s.NestedBundles), OutcomeNested.String())
	ch <- prometheus.MustNewConstMetric(itemsDesc, prometheus.CounterValue, float64(s.ItemsSkipped), OutcomeSkipped.String())
	ch <- prometheus.MustNewConstMetric(itemsFoundDesc, prometheus.CounterValue, float64(s.ItemsFound))
	ch <- prometheus.MustNewConstMetric(payloadBytesDesc, prometheus.CounterValue, float64(s.PayloadBytes))
	ch <- prometheus.MustNewConstMetric(activeWorkersDesc, prometheus.GaugeValue, float64(s.ActiveWorkers))
	ch <- prometheus.MustNewConstMetric(peakDepthDesc, prometheus.GaugeValue, float64(s.PeakDepth))
}
