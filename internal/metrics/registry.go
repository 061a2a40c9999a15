package metrics

import (
	"sync"
	"time"
)

// Counter names used across the pipeline.
const (
	CounterTasksStarted    = "tasks_started"
	CounterTasksCompleted  = "tasks_completed"
	CounterTasksFailed     = "tasks_failed"
	CounterTasksCancelled  = "tasks_cancelled"
	CounterWindowSkips     = "monitor_window_skips"
	CounterAutoPaused      = "campaigns_auto_paused"
	CounterCostBudgetSkips = "cost_budget_skips"
)

// Gauge and timestamp names.
const (
	GaugeEstimatedSpendUSD = "cost_estimated_spend_usd"
	TimestampLastTick      = "scheduler_last_tick"
)

// RateLimitDropCounter returns the rate-limit-drop counter name for a provider.
func RateLimitDropCounter(provider string) string {
	return provider + "_rate_limit_drops"
}

// ProviderCallCounter returns the call counter name for a provider and mode.
func ProviderCallCounter(provider, mode string) string {
	return provider + "_calls_" + mode
}

// Registry is a lock-protected set of counters, gauges and timestamps.
// It is constructed once and passed to the scheduler, adapters and
// handlers explicitly; there is no process-wide instance.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	timestamps map[string]time.Time
}

// NewRegistry creates an empty metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		timestamps: make(map[string]time.Time),
	}
}

// Inc increments a counter by one.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add increments a counter by the given value.
func (r *Registry) Add(name string, value int64) {
	r.mu.Lock()
	r.counters[name] += value
	r.mu.Unlock()
}

// Counter returns the current value of a counter.
func (r *Registry) Counter(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// SetGauge sets a gauge to the given value.
func (r *Registry) SetGauge(name string, value float64) {
	r.mu.Lock()
	r.gauges[name] = value
	r.mu.Unlock()
}

// Gauge returns the current value of a gauge.
func (r *Registry) Gauge(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// TryAddGauge adds delta to a gauge unless the result would exceed limit,
// reporting whether the add was applied. The check and the add happen
// under one lock so concurrent callers cannot overshoot the limit between
// them. A limit of zero or less means no cap.
func (r *Registry) TryAddGauge(name string, delta, limit float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.gauges[name] + delta
	if limit > 0 && next > limit {
		return false
	}
	r.gauges[name] = next
	return true
}

// Mark records the current time under the given name.
func (r *Registry) Mark(name string) {
	r.mu.Lock()
	r.timestamps[name] = time.Now()
	r.mu.Unlock()
}

// Snapshot returns a copy of all counters, gauges and timestamps.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}
	timestamps := make(map[string]string, len(r.timestamps))
	for k, v := range r.timestamps {
		timestamps[k] = v.UTC().Format(time.RFC3339)
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"timestamps": timestamps,
	}
}
