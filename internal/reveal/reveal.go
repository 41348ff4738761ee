// Package reveal tracks one-way "has been seen" flags for page regions.
package reveal

import (
	"math"
	"sort"
	"sync"
)

// DefaultThreshold is the visible fraction at which a region counts as seen.
const DefaultThreshold = 0.1

// Observer watches a single region. The first intersection at or above the
// threshold flips Revealed to true permanently and stops observation.
type Observer struct {
	mu        sync.Mutex
	threshold float64
	revealed  bool
	observing bool
	onReveal  func()
}

// New returns an Observer that is already observing. onReveal may be nil.
func New(threshold float64, onReveal func()) *Observer {
	return &Observer{
		threshold: clamp(threshold),
		observing: true,
		onReveal:  onReveal,
	}
}

// Intersect delivers an intersection event with the visible ratio of the
// region. It reports whether this event revealed the region. A NaN ratio
// is ignored.
func (o *Observer) Intersect(ratio float64) bool {
	o.mu.Lock()
	if !o.observing || math.IsNaN(ratio) || ratio < o.threshold {
		o.mu.Unlock()
		return false
	}
	o.revealed = true
	o.observing = false
	fn := o.onReveal
	o.onReveal = nil
	o.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Revealed reports whether the region has ever been seen.
func (o *Observer) Revealed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.revealed
}

// Observing reports whether the observer still waits for its first reveal.
func (o *Observer) Observing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.observing
}

// Disconnect stops observation without revealing. The revealed flag keeps
// whatever value it had.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.observing = false
	o.onReveal = nil
	o.mu.Unlock()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Set holds one Observer per section key.
type Set struct {
	mu        sync.Mutex
	observers map[string]*Observer
	closed    bool
}

func NewSet() *Set {
	return &Set{observers: make(map[string]*Observer)}
}

// Attach starts observing key. Attaching an existing key replaces its
// observer; attaching to a closed set does nothing.
func (s *Set) Attach(key string, threshold float64, onReveal func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.observers[key]; ok {
		prev.Disconnect()
	}
	s.observers[key] = New(threshold, onReveal)
}

// Intersect forwards an event to key's observer. Keys that were never
// attached are ignored.
func (s *Set) Intersect(key string, ratio float64) bool {
	s.mu.Lock()
	o, ok := s.observers[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return o.Intersect(ratio)
}

func (s *Set) Revealed(key string) bool {
	s.mu.Lock()
	o, ok := s.observers[key]
	s.mu.Unlock()
	return ok && o.Revealed()
}

// Has reports whether key is attached.
func (s *Set) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.observers[key]
	return ok
}

// Keys returns the attached keys sorted.
func (s *Set) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RevealedKeys returns the keys whose regions have been seen, sorted.
func (s *Set) RevealedKeys() []string {
	var out []string
	for _, k := range s.Keys() {
		if s.Revealed(k) {
			out = append(out, k)
		}
	}
	return out
}

// Close disconnects every observer. Further Attach calls are ignored.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, o := range s.observers {
		o.Disconnect()
	}
}
