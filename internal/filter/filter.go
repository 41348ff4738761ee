// Package filter derives tag-restricted views over a fixed collection.
package filter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// All is the sentinel tag that selects the whole collection.
const All = "All"

var ErrUnknownTag = errors.New("filter: unknown tag")

// Filter holds a static collection and exactly one active tag.
type Filter[T any] struct {
	mu       sync.RWMutex
	items    []T
	category func(T) string
	tags     []string
	active   string
}

// New builds a Filter over items. When tags is empty the categories are
// taken from items in order of first appearance.
func New[T any](items []T, category func(T) string, tags ...string) *Filter[T] {
	if len(tags) == 0 {
		tags = lo.Uniq(lo.Map(items, func(it T, _ int) string { return category(it) }))
	}
	tags = lo.Without(lo.Uniq(tags), All)
	return &Filter[T]{
		items:    append([]T(nil), items...),
		category: category,
		tags:     tags,
		active:   All,
	}
}

// SetFilter makes tag the active filter. An unknown tag leaves the active
// filter unchanged.
func (f *Filter[T]) SetFilter(tag string) error {
	if tag != All && !lo.Contains(f.tags, tag) {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	f.mu.Lock()
	f.active = tag
	f.mu.Unlock()
	return nil
}

func (f *Filter[T]) Active() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active
}

// Tags returns All followed by every category tag.
func (f *Filter[T]) Tags() []string {
	return append([]string{All}, f.tags...)
}

// Visible returns the items under the active filter in collection order.
func (f *Filter[T]) Visible() []T {
	return f.Under(f.Active())
}

// Under returns the items tag would select, without changing the active
// filter.
func (f *Filter[T]) Under(tag string) []T {
	if tag == All {
		return append([]T(nil), f.items...)
	}
	return lo.Filter(f.items, func(it T, _ int) bool { return f.category(it) == tag })
}

// Count reports how many items tag selects.
func (f *Filter[T]) Count(tag string) int {
	if tag == All {
		return len(f.items)
	}
	return lo.CountBy(f.items, func(it T) bool { return f.category(it) == tag })
}

// Len is the size of the whole collection.
func (f *Filter[T]) Len() int {
	return len(f.items)
}
