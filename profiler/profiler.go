// Package profiler times named operations and counts events, and can log a
// periodic summary of both together with process memory usage.
package profiler

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricsCollector supplies gauges that are read at report time.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// OperationStats summarises the retained samples of one operation.
type OperationStats struct {
	Count int64
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	P95   time.Duration
}

// Options configures a Profiler.
type Options struct {
	// ReportInterval specifies how often Start logs a report (default: 1m).
	ReportInterval time.Duration
	// MaxSamples bounds the durations retained per operation (default: 1024).
	MaxSamples int
}

// Profiler collects operation timings and counters. All methods are safe for
// concurrent use; a nil *Profiler is a valid no-op.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int

	mu         sync.Mutex
	startTime  time.Time
	operations map[string]*timeTracker
	counters   map[string]int64
	collectors []MetricsCollector

	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

type timeTracker struct {
	durations []time.Duration
	next      int
	count     int64
	min       time.Duration
	max       time.Duration
}

// New creates a profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler.
//
// Returns:
// - A configured Profiler.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = time.Minute
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 1024
	}

	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		startTime:      time.Now(),
		operations:     make(map[string]*timeTracker),
		counters:       make(map[string]int64),
	}
}

// Start begins logging a report every ReportInterval. Calling Start on a
// running profiler does nothing.
func (p *Profiler) Start() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})

	p.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for _, line := range strings.Split(strings.TrimRight(p.Report(), "\n"), "\n") {
					log.Printf("[PROFILER] %s", line)
				}
			}
		}
	}(p.stop)
}

// Stop halts periodic reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
}

// AddMetricsCollector registers a collector read on every report.
func (p *Profiler) AddMetricsCollector(c MetricsCollector) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, c)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track.
//
// Returns:
// - A function to call when the operation completes.
//
// @example
// defer prof.StartOperation("convert")()
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one completed operation of the given duration.
func (p *Profiler) Record(name string, d time.Duration) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &timeTracker{
			durations: make([]time.Duration, 0, min(p.maxSamples, 64)),
			min:       d,
			max:       d,
		}
		p.operations[name] = t
	}

	// Ring buffer of the most recent maxSamples durations.
	if len(t.durations) < p.maxSamples {
		t.durations = append(t.durations, d)
	} else {
		t.durations[t.next] = d
		t.next = (t.next + 1) % p.maxSamples
	}

	t.count++
	if d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
}

// Inc increments the named counter.
func (p *Profiler) Inc(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters[name]++
	p.mu.Unlock()
}

// Counter returns the value of the named counter.
func (p *Profiler) Counter(name string) int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters[name]
}

// Snapshot returns statistics for every operation recorded so far. Min, Max
// and Count cover the whole lifetime; Avg and P95 cover retained samples.
func (p *Profiler) Snapshot() map[string]OperationStats {
	if p == nil {
		return map[string]OperationStats{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]OperationStats, len(p.operations))
	for name, t := range p.operations {
		out[name] = t.stats()
	}
	return out
}

func (t *timeTracker) stats() OperationStats {
	s := OperationStats{Count: t.count, Min: t.min, Max: t.max}
	if len(t.durations) == 0 {
		return s
	}

	sorted := make([]time.Duration, len(t.durations))
	copy(sorted, t.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	s.Avg = total / time.Duration(len(sorted))
	s.P95 = sorted[(len(sorted)*95+99)/100-1]
	return s
}

// Report formats the current counters, operation timings, collector gauges
// and memory usage as multi-line text.
func (p *Profiler) Report() string {
	if p == nil {
		return ""
	}

	ops := p.Snapshot()

	p.mu.Lock()
	counters := make(map[string]int64, len(p.counters))
	for k, v := range p.counters {
		counters[k] = v
	}
	collectors := append([]MetricsCollector(nil), p.collectors...)
	uptime := time.Since(p.startTime)
	p.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var sb strings.Builder
	fmt.Fprintf(&sb, "uptime=%v goroutines=%d heap=%s sys=%s gc=%d\n",
		uptime.Truncate(time.Second), runtime.NumGoroutine(),
		formatBytes(mem.HeapAlloc), formatBytes(mem.Sys), mem.NumGC)

	for _, name := range sortedKeys(counters) {
		fmt.Fprintf(&sb, "counter %s=%d\n", name, counters[name])
	}

	for _, name := range sortedKeys(ops) {
		s := ops[name]
		fmt.Fprintf(&sb, "operation %s: count=%d avg=%v p95=%v min=%v max=%v\n",
			name, s.Count,
			s.Avg.Truncate(time.Microsecond), s.P95.Truncate(time.Microsecond),
			s.Min.Truncate(time.Microsecond), s.Max.Truncate(time.Microsecond))
	}

	for _, c := range collectors {
		metrics := c.CollectMetrics()
		for _, name := range sortedKeys(metrics) {
			fmt.Fprintf(&sb, "metric %s=%.2f\n", name, metrics[name])
		}
	}

	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
