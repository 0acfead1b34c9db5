package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Level is the coarse health of an upstream, derived from its breaker.
type Level int

const (
	LevelOK Level = iota
	LevelDegraded
	LevelDown
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelDegraded:
		return "degraded"
	default:
		return "down"
	}
}

// Monitored is anything with circuit breaker state worth reporting.
// *Client satisfies it, as does the ML engine guard.
type Monitored interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// Health is a point-in-time view of one upstream.
type Health struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	// Successes and Failures count call outcomes since registration,
	// independent of the breaker's rolling window.
	Successes uint64
	Failures  uint64

	// Zero when no such outcome has been seen.
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Level maps the breaker state: closed is ok, half-open degraded, open down.
func (h Health) Level() Level {
	switch h.State {
	case gobreaker.StateClosed:
		return LevelOK
	case gobreaker.StateHalfOpen:
		return LevelDegraded
	default:
		return LevelDown
	}
}

// Registry tracks the upstreams the scorer depends on so /ops/status can
// report them together.
type Registry struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	source      Monitored
	successes   uint64
	failures    uint64
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Register adds an upstream. Registering a name twice resets its history.
func (r *Registry) Register(name string, source Monitored) {
	r.mu.Lock()
	r.entries[name] = &entry{source: source}
	r.mu.Unlock()
}

// RecordSuccess notes a successful call. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.successes++
	e.lastSuccess = r.now()
}

// RecordFailure notes a failed call and keeps err's message.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.failures++
	e.lastFailure = r.now()
	if err != nil {
		e.lastError = err.Error()
	}
}

// Health reports one upstream.
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Health{}, false
	}
	return e.snapshot(name), true
}

// Snapshot reports every upstream, ordered by name.
func (r *Registry) Snapshot() []Health {
	r.mu.RLock()
	out := make([]Health, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.snapshot(name))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered upstreams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) snapshot(name string) Health {
	return Health{
		Name:        name,
		State:       e.source.CircuitBreakerState(),
		Counts:      e.source.CircuitBreakerCounts(),
		Successes:   e.successes,
		Failures:    e.failures,
		LastSuccess: e.lastSuccess,
		LastFailure: e.lastFailure,
		LastError:   e.lastError,
	}
}
