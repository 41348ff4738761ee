// Package nav works out which page section the navigation highlights.
package nav

import "sync"

const (
	// DefaultOffset is added to the scroll position before matching sections.
	DefaultOffset = 100
	// DefaultScrolledThreshold is the scroll position past which the bar
	// switches to its scrolled style.
	DefaultScrolledThreshold = 50
)

// Span is a section's vertical extent: [Top, Top+Height).
type Span struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

func (s Span) contains(p float64) bool {
	return p >= s.Top && p < s.Top+s.Height
}

// State is what the navigation bar renders from.
type State struct {
	Active   string `json:"active"`
	Scrolled bool   `json:"scrolled"`
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithOffset(px float64) Option {
	return func(t *Tracker) { t.offset = px }
}

func WithScrolledThreshold(px float64) Option {
	return func(t *Tracker) { t.scrolledAt = px }
}

// Tracker maps scroll events to the active section. It starts on the first
// section and only moves when a section strictly contains the probe point.
type Tracker struct {
	mu         sync.Mutex
	sections   []string
	offset     float64
	scrolledAt float64
	state      State
}

func NewTracker(sections []string, opts ...Option) *Tracker {
	t := &Tracker{
		sections:   append([]string(nil), sections...),
		offset:     DefaultOffset,
		scrolledAt: DefaultScrolledThreshold,
	}
	if len(sections) > 0 {
		t.state.Active = sections[0]
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Scroll handles one scroll event. layout gives the spans of the sections
// currently on the page; sections missing from it are skipped.
func (t *Tracker) Scroll(scrollY float64, layout map[string]Span) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Scrolled = scrollY > t.scrolledAt
	probe := scrollY + t.offset
	for _, key := range t.sections {
		span, ok := layout[key]
		if !ok {
			continue
		}
		if span.contains(probe) {
			t.state.Active = key
			break
		}
	}
	return t.state
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Sections() []string {
	return append([]string(nil), t.sections...)
}
