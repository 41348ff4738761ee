// Package lightbox holds the open/closed state of a single-item preview
// overlay.
package lightbox

import "sync"

// Target is the element a click landed on inside the lightbox.
type Target string

const (
	// TargetOverlay is the dimmed background around the content.
	TargetOverlay Target = "overlay"
	// TargetClose is the close button.
	TargetClose Target = "close"
	// TargetContent is anything inside the content panel.
	TargetContent Target = "content"
	// TargetVerifyLink is the external verification link in the panel.
	TargetVerifyLink Target = "verify"
)

// ParseTarget maps a client-supplied name to a Target. Unknown names
// report false.
func ParseTarget(s string) (Target, bool) {
	switch t := Target(s); t {
	case TargetOverlay, TargetClose, TargetContent, TargetVerifyLink:
		return t, true
	}
	return "", false
}

// closes reports whether a click on t reaches the overlay's close handler.
// Clicks inside the content panel stop propagating at the panel boundary.
func (t Target) closes() bool {
	return t == TargetOverlay || t == TargetClose
}

// Lightbox is either closed or open with exactly one item.
type Lightbox[T any] struct {
	mu      sync.Mutex
	current T
	open    bool
}

func New[T any]() *Lightbox[T] {
	return &Lightbox[T]{}
}

// Open shows item, replacing whatever was open.
func (l *Lightbox[T]) Open(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = item
	l.open = true
}

// Close hides the overlay. Closing a closed lightbox does nothing.
func (l *Lightbox[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.current = zero
	l.open = false
}

// Current returns the open item.
func (l *Lightbox[T]) Current() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.open
}

func (l *Lightbox[T]) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// Click applies a click on t and reports whether it closed the lightbox.
func (l *Lightbox[T]) Click(t Target) bool {
	if !t.closes() {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return false
	}
	var zero T
	l.current = zero
	l.open = false
	return true
}
