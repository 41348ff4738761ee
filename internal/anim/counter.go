// Package anim drives timed presentation effects: counters that climb to a
// target, staggered reveals, and typed text.
package anim

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kanileenas/portfolio/internal/sched"
)

var (
	ErrInvalidTick    = errors.New("anim: tick interval must be positive")
	ErrNegativeTarget = errors.New("anim: target must not be negative")
	ErrClosed         = errors.New("anim: animator closed")
)

// Animator runs independent counters keyed by name. Each counter climbs from
// zero to its target in equal increments, one per tick.
type Animator struct {
	mu     sync.Mutex
	sched  sched.Scheduler
	values map[string]float64
	runs   map[string]*run
	closed bool
}

type run struct {
	target    float64
	increment float64
	steps     float64
	ticks     int
	cancel    sched.Cancel
}

// NewAnimator returns an Animator whose ticks come from s.
func NewAnimator(s sched.Scheduler) *Animator {
	return &Animator{
		sched:  s,
		values: make(map[string]float64),
		runs:   make(map[string]*run),
	}
}

// Animate starts the counter for key. A counter already running for key is
// cancelled and the new run starts over from zero.
func (a *Animator) Animate(key string, target float64, duration, tick time.Duration) error {
	if tick <= 0 {
		return ErrInvalidTick
	}
	if target < 0 || math.IsNaN(target) {
		return ErrNegativeTarget
	}
	steps := float64(duration) / float64(tick)
	if steps < 1 {
		steps = 1
	}
	r := &run{target: target, increment: target / steps, steps: steps}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if prev, ok := a.runs[key]; ok {
		prev.cancel()
	}
	a.values[key] = 0
	a.runs[key] = r
	r.cancel = a.sched.Every(tick, func() { a.step(key, r) })
	return nil
}

func (a *Animator) step(key string, r *run) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// a superseded or cancelled run may still deliver one late tick
	if a.runs[key] != r {
		return
	}
	r.ticks++
	v := r.increment * float64(r.ticks)
	if v >= r.target || float64(r.ticks) >= r.steps {
		v = r.target
		r.cancel()
		delete(a.runs, key)
	}
	a.values[key] = v
}

// Value returns the displayed value for key: the running value rounded down.
func (a *Animator) Value(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(math.Floor(a.values[key]))
}

// Values returns the displayed value of every counter started so far.
func (a *Animator) Values() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.values))
	for k, v := range a.values {
		out[k] = int(math.Floor(v))
	}
	return out
}

// Keys returns the names of every counter started so far, sorted.
func (a *Animator) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *Animator) Running(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.runs[key]
	return ok
}

// Done reports whether no counter is running.
func (a *Animator) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.runs) == 0
}

// Close cancels every running counter. Values freeze where they are.
func (a *Animator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for key, r := range a.runs {
		r.cancel()
		delete(a.runs, key)
	}
}
