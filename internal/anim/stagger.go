package anim

import (
	"sync"
	"time"

	"github.com/kanileenas/portfolio/internal/sched"
)

// Stagger calls fn(i) for i in [0, n) at i*step after now. The returned
// Cancel drops every call that has not fired yet.
func Stagger(s sched.Scheduler, step time.Duration, n int, fn func(i int)) sched.Cancel {
	cancels := make([]sched.Cancel, 0, n)
	for i := 0; i < n; i++ {
		i := i
		cancels = append(cancels, s.After(time.Duration(i)*step, func() { fn(i) }))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, c := range cancels {
				c()
			}
		})
	}
}

// Progress records which named items a stagger has reached.
type Progress struct {
	mu    sync.Mutex
	order []string
	seen  map[string]bool
}

func NewProgress() *Progress {
	return &Progress{seen: make(map[string]bool)}
}

// Mark records name once; repeated marks are ignored.
func (p *Progress) Mark(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[name] {
		return
	}
	p.seen[name] = true
	p.order = append(p.order, name)
}

func (p *Progress) Has(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[name]
}

// Names returns marked names in the order they were marked.
func (p *Progress) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}
