package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are tracked in microseconds from 1µs to 60s with 3 significant
// figures.
const (
	minValue = 1
	maxValue = int64(60 * time.Second / time.Microsecond)
	sigFigs  = 3
)

const (
	UnmatchedSeries = "unmatched"
	OverflowSeries  = "other"

	// each series holds its own histogram
	maxSeries = 256
)

type Recorder struct {
	mu     sync.Mutex
	routes map[string]*route
	since  time.Time
}

type route struct {
	hist   *hdrhistogram.Histogram
	errors int64
}

func NewRecorder() *Recorder {
	return &Recorder{routes: make(map[string]*route), since: time.Now()}
}

// Observe records one request. Values above the histogram range are clamped.
func (r *Recorder) Observe(name string, d time.Duration, status int) {
	us := d.Microseconds()
	if us < minValue {
		us = minValue
	}
	if us > maxValue {
		us = maxValue
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.routes[name]
	if !ok && len(r.routes) >= maxSeries {
		name = OverflowSeries
		rt, ok = r.routes[name]
	}
	if !ok {
		rt = &route{hist: hdrhistogram.New(minValue, maxValue, sigFigs)}
		r.routes[name] = rt
	}
	_ = rt.hist.RecordValue(us)
	if status >= 500 {
		rt.errors++
	}
}

type RouteStats struct {
	Route  string  `json:"route"`
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
}

type Snapshot struct {
	Since  time.Time    `json:"since"`
	Routes []RouteStats `json:"routes"`
}

// Snapshot returns per-route stats sorted by request count, busiest first.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{Since: r.since, Routes: make([]RouteStats, 0, len(r.routes))}
	for name, rt := range r.routes {
		h := rt.hist
		out.Routes = append(out.Routes, RouteStats{
			Route:  name,
			Count:  h.TotalCount(),
			Errors: rt.errors,
			P50Ms:  toMs(h.ValueAtQuantile(50)),
			P95Ms:  toMs(h.ValueAtQuantile(95)),
			P99Ms:  toMs(h.ValueAtQuantile(99)),
			MaxMs:  toMs(h.Max()),
			MeanMs: h.Mean() / 1000,
		})
	}
	sort.Slice(out.Routes, func(i, j int) bool {
		if out.Routes[i].Count != out.Routes[j].Count {
			return out.Routes[i].Count > out.Routes[j].Count
		}
		return out.Routes[i].Route < out.Routes[j].Route
	})
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = make(map[string]*route)
	r.since = time.Now()
}

func toMs(us int64) float64 { return float64(us) / 1000 }
