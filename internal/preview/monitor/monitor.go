// Package monitor keeps bounded telemetry about preview executions.
//
// History is newest-first and capped; rolling statistics only look at the most
// recent window so that "recent health" reacts quickly regardless of how much
// history is retained.
package monitor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/webide/backend/internal/shared/id"
)

const (
	DefaultMaxHistory   = 100
	DefaultRecentWindow = 10
)

// Record is one finished execution. Records are values and never modified.
type Record struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	FileName        string    `json:"fileName"`
	FileType        string    `json:"fileType"`
	ExecutionTimeMs float64   `json:"executionTimeMs"`
	Success         bool      `json:"success"`
}

// Stats summarizes the history.
type Stats struct {
	TotalExecutions        int        `json:"totalExecutions"`
	LifetimeExecutions     int64      `json:"lifetimeExecutions"`
	RecentExecutions       int        `json:"recentExecutions"`
	AvgExecutionTimeMs     float64    `json:"avgExecutionTimeMs"`
	SuccessRatePercent     float64    `json:"successRatePercent"`
	LastExecutionTimestamp *time.Time `json:"lastExecutionTimestamp"`
}

// Monitor is the process-wide execution history. Construct one and pass it to
// whatever records executions.
type Monitor struct {
	mu         sync.RWMutex
	history    []Record // newest first
	maxHistory int
	window     int
	lifetime   int64
	now        func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMaxHistory bounds retained records.
func WithMaxHistory(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

// WithRecentWindow sets how many records rolling stats cover.
func WithRecentWindow(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates an empty monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		maxHistory: DefaultMaxHistory,
		window:     DefaultRecentWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.history = make([]Record, 0, m.maxHistory)
	return m
}

// Record prepends an execution and drops the oldest beyond the cap.
func (m *Monitor) Record(fileName, fileType string, executionTimeMs float64, success bool) {
	rec := Record{
		ID:              id.NewExecutionID().String(),
		Timestamp:       m.now(),
		FileName:        fileName,
		FileType:        fileType,
		ExecutionTimeMs: executionTimeMs,
		Success:         success,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) < m.maxHistory {
		m.history = append(m.history, Record{})
	}
	copy(m.history[1:], m.history[:len(m.history)-1])
	m.history[0] = rec
	m.lifetime++
}

// Stats computes rolling statistics over the most recent window.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		TotalExecutions:    len(m.history),
		LifetimeExecutions: m.lifetime,
	}
	if len(m.history) == 0 {
		return s
	}

	recent := m.history[:min(m.window, len(m.history))]
	times := make([]float64, len(recent))
	succeeded := 0
	for i, rec := range recent {
		times[i] = rec.ExecutionTimeMs
		if rec.Success {
			succeeded++
		}
	}

	last := recent[0].Timestamp
	s.RecentExecutions = len(recent)
	s.AvgExecutionTimeMs = stat.Mean(times, nil)
	s.SuccessRatePercent = float64(succeeded) / float64(len(recent)) * 100
	s.LastExecutionTimestamp = &last
	return s
}

// History returns up to limit records, newest first. limit <= 0 returns all.
func (m *Monitor) History(limit int) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	return append([]Record(nil), m.history[:limit]...)
}

// Reset clears history and the lifetime counter.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = m.history[:0]
	m.lifetime = 0
}
