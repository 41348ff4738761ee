package anim

import (
	"sync"
	"time"

	"github.com/kanileenas/portfolio/internal/sched"
)

// Typewriter reveals text one rune per interval.
type Typewriter struct {
	mu     sync.Mutex
	runes  []rune
	shown  int
	cancel sched.Cancel
}

// Type starts typing text on s.
func Type(s sched.Scheduler, text string, interval time.Duration) *Typewriter {
	tw := &Typewriter{runes: []rune(text)}
	if len(tw.runes) == 0 {
		return tw
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.cancel = s.Every(interval, tw.step)
	return tw
}

func (tw *Typewriter) step() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.shown < len(tw.runes) {
		tw.shown++
	}
	if tw.shown == len(tw.runes) && tw.cancel != nil {
		tw.cancel()
		tw.cancel = nil
	}
}

// Text returns the portion typed so far.
func (tw *Typewriter) Text() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return string(tw.runes[:tw.shown])
}

func (tw *Typewriter) Done() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.shown == len(tw.runes)
}

// Stop freezes the text where it is.
func (tw *Typewriter) Stop() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.cancel != nil {
		tw.cancel()
		tw.cancel = nil
	}
}
