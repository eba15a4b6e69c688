package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application counters
type Metrics struct {
	RequestCount int64
	ErrorCount   int64

	Submissions  int64
	Logins       int64
	FailedLogins int64
	Reviews      int64

	StartTime time.Time

	// Status code tracking
	RequestCountByStatus map[int]int64
	statusMutex          sync.RWMutex

	// Keep the last samples for a simple latency average
	responseTimes      []time.Duration
	responseTimesMutex sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		RequestCountByStatus: make(map[int]int64),
		responseTimes:        make([]time.Duration, 0, 1000),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementSubmissions increments the proposal submission count
func (m *Metrics) IncrementSubmissions() {
	atomic.AddInt64(&m.Submissions, 1)
}

// IncrementLogins increments the successful login count
func (m *Metrics) IncrementLogins() {
	atomic.AddInt64(&m.Logins, 1)
}

// IncrementFailedLogins increments the failed login count
func (m *Metrics) IncrementFailedLogins() {
	atomic.AddInt64(&m.FailedLogins, 1)
}

// IncrementReviews increments the evaluator review count
func (m *Metrics) IncrementReviews() {
	atomic.AddInt64(&m.Reviews, 1)
}

// RecordResponseTime records response time for averaging (last 1000 samples)
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseTimesMutex.Lock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() map[string]interface{} {
	m.statusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		byStatus[code] = count
	}
	m.statusMutex.RUnlock()

	m.responseTimesMutex.RLock()
	var total time.Duration
	for _, d := range m.responseTimes {
		total += d
	}
	avgMs := float64(0)
	if len(m.responseTimes) > 0 {
		avgMs = float64(total.Milliseconds()) / float64(len(m.responseTimes))
	}
	m.responseTimesMutex.RUnlock()

	return map[string]interface{}{
		"request_count":      atomic.LoadInt64(&m.RequestCount),
		"error_count":        atomic.LoadInt64(&m.ErrorCount),
		"submissions":        atomic.LoadInt64(&m.Submissions),
		"logins":             atomic.LoadInt64(&m.Logins),
		"failed_logins":      atomic.LoadInt64(&m.FailedLogins),
		"reviews":            atomic.LoadInt64(&m.Reviews),
		"requests_by_status": byStatus,
		"avg_response_ms":    avgMs,
		"uptime_seconds":     time.Since(m.StartTime).Seconds(),
	}
}
