// Package sched schedules repeating and one-shot callbacks. Callbacks from a
// single scheduler never run concurrently with each other.
package sched

import (
	"sync"
	"time"
)

// Cancel stops a scheduled callback. Calling it more than once is safe, and
// calling it from inside the callback it cancels is allowed.
type Cancel func()

// Scheduler runs callbacks after a delay or on a fixed interval.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Cancel
	After(delay time.Duration, fn func()) Cancel
}

// Timer is the wall-clock Scheduler backed by the time package.
type Timer struct {
	mu sync.Mutex
}

// NewTimer returns a Scheduler that fires on real time.
func NewTimer() *Timer {
	return &Timer{}
}

// Every calls fn every interval until cancelled.
func (t *Timer) Every(interval time.Duration, fn func()) Cancel {
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.run(stop, fn)
			}
		}
	}()
	return cancel
}

// After calls fn once after delay unless cancelled first.
func (t *Timer) After(delay time.Duration, fn func()) Cancel {
	stop := make(chan struct{})
	var once sync.Once
	timer := time.AfterFunc(delay, func() { t.run(stop, fn) })
	return func() {
		once.Do(func() {
			close(stop)
			timer.Stop()
		})
	}
}

func (t *Timer) run(stop <-chan struct{}, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-stop:
		return
	default:
	}
	fn()
}
