// Package metrics collects runtime statistics about chat turns, both in
// memory (for the stats endpoint and the /stats chat command) and as
// Prometheus instruments.
package metrics

import (
	"maps"
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpTurn   = "turn"
	OpExport = "export"
)

// opMetrics holds aggregated metrics for a single operation type.
type opMetrics struct {
	count        int64
	totalTime    time.Duration
	minTime      time.Duration
	maxTime      time.Duration
	inputTokens  int64
	outputTokens int64
}

// OperationSnapshot provides computed stats for one operation.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`

	// Token totals, nil when the provider reported none.
	InputTokens  *int64 `json:"input_tokens,omitempty"`
	OutputTokens *int64 `json:"output_tokens,omitempty"`
}

// Snapshot is a point-in-time view of all statistics.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Turns         *OperationSnapshot `json:"turns,omitempty"`
	Exports       *OperationSnapshot `json:"exports,omitempty"`
	Outcomes      map[string]int64   `json:"outcomes"`
	Sessions      int64              `json:"sessions"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu       sync.RWMutex
	start    time.Time
	ops      map[string]*opMetrics
	outcomes map[string]int64
	sessions int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		start:    time.Now(),
		ops:      make(map[string]*opMetrics),
		outcomes: make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *opMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &opMetrics{minTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

func (m *opMetrics) observe(d time.Duration) {
	m.count++
	m.totalTime += d
	m.minTime = min(m.minTime, d)
	m.maxTime = max(m.maxTime, d)
}

// RecordSubmit records one submitted turn, its outcome and token usage.
func (c *Collector) RecordSubmit(outcome string, duration time.Duration, inputTokens, outputTokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpTurn)
	m.observe(duration)
	m.inputTokens += inputTokens
	m.outputTokens += outputTokens
	c.outcomes[outcome]++
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getOrCreate(op).observe(duration)
}

// SessionStarted counts a new chat session.
func (c *Collector) SessionStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *opMetrics) *OperationSnapshot {
	if m == nil || m.count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.count,
		TotalTimeMs: m.totalTime.Milliseconds(),
		AvgTimeMs:   float64(m.totalTime.Milliseconds()) / float64(m.count),
		MinTimeMs:   m.minTime.Milliseconds(),
		MaxTimeMs:   m.maxTime.Milliseconds(),
	}
	if m.inputTokens > 0 || m.outputTokens > 0 {
		in, out := m.inputTokens, m.outputTokens
		snap.InputTokens = &in
		snap.OutputTokens = &out
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.start).Seconds(),
		Turns:         snapshotOp(c.ops[OpTurn]),
		Exports:       snapshotOp(c.ops[OpExport]),
		Outcomes:      maps.Clone(c.outcomes),
		Sessions:      c.sessions,
	}
}
