package common

import (
	"fmt"
	"sync"
	"time"
)

// Metrics counts what a single run did. Every method is safe on a nil
// receiver so callers can leave it unset.
type Metrics struct {
	mu       sync.Mutex
	start    time.Time
	end      time.Time
	bytes    int64
	channels int
	attempts int
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// AddBytes records fetched channel list bytes.
func (m *Metrics) AddBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.mu.Lock()
	m.bytes += n
	m.mu.Unlock()
}

func (m *Metrics) SetChannels(n int) {
	if m == nil || n < 0 {
		return
	}
	m.mu.Lock()
	m.channels = n
	m.mu.Unlock()
}

// IncAttempt counts one SetMainTVChannel invocation.
func (m *Metrics) IncAttempt() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration: m.elapsedLocked(),
		Bytes:    m.bytes,
		Channels: m.channels,
		Attempts: m.attempts,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration time.Duration
	Bytes    int64
	Channels int
	Attempts int
}

func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("took %s, fetched %s, %d channels, %d switch attempts",
		s.Duration.Round(time.Millisecond), FormatBytes(s.Bytes), s.Channels, s.Attempts)
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div := float64(unit)
	exp := 0
	for n := float64(b) / div; n >= unit && exp < 6; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.2f %s", float64(b)/div, prefixes[exp])
}
