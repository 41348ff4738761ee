// Package view composes the per-page-load engine: every mounted page gets
// its own observers, counters, filters, lightbox and navigation tracker, and
// tearing the page down cancels all of them.
package view

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kanileenas/portfolio/internal/anim"
	"github.com/kanileenas/portfolio/internal/content"
	"github.com/kanileenas/portfolio/internal/filter"
	"github.com/kanileenas/portfolio/internal/lightbox"
	"github.com/kanileenas/portfolio/internal/nav"
	"github.com/kanileenas/portfolio/internal/reveal"
	"github.com/kanileenas/portfolio/internal/sched"
)

const (
	SectionAbout  = "about"
	SectionSkills = "skills"
)

var (
	ErrNotFound           = errors.New("view: not found")
	ErrUnmounted          = errors.New("view: unmounted")
	ErrUnknownCertificate = errors.New("view: unknown certificate")
)

// Options tunes the timings of a view's effects.
type Options struct {
	Scheduler       sched.Scheduler
	Threshold       float64
	CounterDelay    time.Duration
	CounterDuration time.Duration
	CounterTick     time.Duration
	SkillStep       time.Duration
	TypeInterval    time.Duration
}

// DefaultOptions are the page's standard animation timings.
func DefaultOptions() Options {
	return Options{
		Threshold:       reveal.DefaultThreshold,
		CounterDelay:    500 * time.Millisecond,
		CounterDuration: 2 * time.Second,
		CounterTick:     50 * time.Millisecond,
		SkillStep:       120 * time.Millisecond,
		TypeInterval:    100 * time.Millisecond,
	}
}

// View is the engine state of one mounted page.
type View struct {
	ID string

	site   *content.Site
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	unmounted bool
	lastSeen  time.Time
	cancels   []sched.Cancel

	sections *reveal.Set
	counters *anim.Animator
	bars     *anim.Progress
	hero     *anim.Typewriter
	skills   *filter.Filter[content.SkillCategory]
	projects *filter.Filter[content.Project]
	lightbox *lightbox.Lightbox[content.Certificate]
	tracker  *nav.Tracker
}

func newView(id string, site *content.Site, opts Options, logger *zap.Logger, now time.Time) *View {
	v := &View{
		ID:       id,
		site:     site,
		opts:     opts,
		logger:   logger.With(zap.String("view_id", id)),
		lastSeen: now,
		sections: reveal.NewSet(),
		counters: anim.NewAnimator(opts.Scheduler),
		bars:     anim.NewProgress(),
		skills: filter.New(site.Categories, func(c content.SkillCategory) string { return c.Name },
			lo.Map(site.Categories, func(c content.SkillCategory, _ int) string { return c.Name })...),
		projects: filter.New(site.Projects, func(p content.Project) string { return p.Category },
			site.ProjectFilters...),
		lightbox: lightbox.New[content.Certificate](),
		tracker:  nav.NewTracker(site.Sections),
	}
	for _, key := range site.Sections {
		var onReveal func()
		switch key {
		case SectionAbout:
			onReveal = v.startCounters
		case SectionSkills:
			onReveal = v.startSkillBars
		}
		v.sections.Attach(key, opts.Threshold, onReveal)
	}
	v.hero = anim.Type(opts.Scheduler, site.Hero.Tagline, opts.TypeInterval)
	return v
}

// own registers a cancel to run on unmount. It reports false, after
// cancelling, when the view is already gone.
func (v *View) own(c sched.Cancel) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		c()
		return false
	}
	v.cancels = append(v.cancels, c)
	return true
}

func (v *View) startCounters() {
	v.own(v.opts.Scheduler.After(v.opts.CounterDelay, func() {
		for _, c := range v.site.Counters {
			err := v.counters.Animate(c.Key, float64(c.Target), v.opts.CounterDuration, v.opts.CounterTick)
			if err != nil && !errors.Is(err, anim.ErrClosed) {
				v.logger.Warn("counter not started", zap.String("counter", c.Key), zap.Error(err))
			}
		}
	}))
}

func (v *View) startSkillBars() {
	names := lo.Map(v.site.Skills, func(s content.Skill, _ int) string { return s.Name })
	v.own(anim.Stagger(v.opts.Scheduler, v.opts.SkillStep, len(names), func(i int) {
		v.bars.Mark(names[i])
	}))
}

func (v *View) check() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return ErrUnmounted
	}
	return nil
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Unmount cancels every timer and observer the view owns. It is safe to
// call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	cancels := v.cancels
	v.cancels = nil
	v.mu.Unlock()

	v.sections.Close()
	v.hero.Stop()
	v.counters.Close()
	for _, c := range cancels {
		c()
	}
}

// Unmounted reports whether Unmount has run.
func (v *View) Unmounted() bool {
	return v.check() != nil
}

// Intersect reports a section's visible ratio. Sections the page does not
// have are ignored.
func (v *View) Intersect(section string, ratio float64) (bool, error) {
	if err := v.check(); err != nil {
		return false, err
	}
	return v.sections.Intersect(section, ratio), nil
}

// Threshold is the visible fraction at which a section reveals.
func (v *View) Threshold() float64 {
	return v.opts.Threshold
}

// Revealed reports whether section has been seen.
func (v *View) Revealed(section string) bool {
	return v.sections.Revealed(section)
}

// Scroll feeds one scroll event to the navigation tracker.
func (v *View) Scroll(scrollY float64, layout map[string]nav.Span) (nav.State, error) {
	if err := v.check(); err != nil {
		return nav.State{}, err
	}
	return v.tracker.Scroll(scrollY, layout), nil
}

// Nav returns the navigation state.
func (v *View) Nav() nav.State {
	return v.tracker.State()
}

// Counters returns the displayed counter values.
func (v *View) Counters() map[string]int {
	out := make(map[string]int, len(v.site.Counters))
	values := v.counters.Values()
	for _, c := range v.site.Counters {
		out[c.Key] = values[c.Key]
	}
	return out
}

// CountersSettled reports whether every counter has started and finished.
func (v *View) CountersSettled() bool {
	return len(v.counters.Keys()) == len(v.site.Counters) && v.counters.Done()
}

// SkillBarFilled reports whether the named skill's progress bar has started
// filling.
func (v *View) SkillBarFilled(name string) bool {
	return v.bars.Has(name)
}

// HeroText is the typed portion of the hero tagline.
func (v *View) HeroText() string {
	return v.hero.Text()
}

// FilterState is a filter's active tag, its choices and the visible items.
type FilterState[T any] struct {
	Active string
	Tags   []string
	Items  []T
}

func stateOf[T any](f *filter.Filter[T]) FilterState[T] {
	return FilterState[T]{Active: f.Active(), Tags: f.Tags(), Items: f.Visible()}
}

func (v *View) Skills() FilterState[content.SkillCategory] {
	return stateOf(v.skills)
}

func (v *View) Projects() FilterState[content.Project] {
	return stateOf(v.projects)
}

// FilterSkills switches the skills filter.
func (v *View) FilterSkills(tag string) (FilterState[content.SkillCategory], error) {
	if err := v.check(); err != nil {
		return FilterState[content.SkillCategory]{}, err
	}
	if err := v.skills.SetFilter(tag); err != nil {
		return FilterState[content.SkillCategory]{}, fmt.Errorf("view: skills filter: %w", err)
	}
	return v.Skills(), nil
}

// FilterProjects switches the portfolio filter.
func (v *View) FilterProjects(tag string) (FilterState[content.Project], error) {
	if err := v.check(); err != nil {
		return FilterState[content.Project]{}, err
	}
	if err := v.projects.SetFilter(tag); err != nil {
		return FilterState[content.Project]{}, fmt.Errorf("view: portfolio filter: %w", err)
	}
	return v.Projects(), nil
}

// OpenCertificate shows certificate id in the lightbox.
func (v *View) OpenCertificate(id string) (content.Certificate, error) {
	if err := v.check(); err != nil {
		return content.Certificate{}, err
	}
	c, ok := v.site.Certificate(id)
	if !ok {
		return content.Certificate{}, fmt.Errorf("%w: %q", ErrUnknownCertificate, id)
	}
	v.lightbox.Open(c)
	return c, nil
}

// ClickLightbox applies a click inside the lightbox and returns what is
// still open afterwards.
func (v *View) ClickLightbox(t lightbox.Target) (content.Certificate, bool, error) {
	if err := v.check(); err != nil {
		return content.Certificate{}, false, err
	}
	v.lightbox.Click(t)
	c, open := v.lightbox.Current()
	return c, open, nil
}

// CloseLightbox closes the lightbox whatever its state.
func (v *View) CloseLightbox() error {
	if err := v.check(); err != nil {
		return err
	}
	v.lightbox.Close()
	return nil
}

// Lightbox returns the open certificate, if any.
func (v *View) Lightbox() (content.Certificate, bool) {
	return v.lightbox.Current()
}

// Snapshot is the whole view state, for debugging and client resync.
type Snapshot struct {
	ID             string         `json:"id"`
	Revealed       []string       `json:"revealed"`
	Counters       map[string]int `json:"counters"`
	CountersDone   bool           `json:"counters_done"`
	SkillBars      []string       `json:"skill_bars"`
	Hero           string         `json:"hero"`
	SkillsFilter   string         `json:"skills_filter"`
	ProjectsFilter string         `json:"projects_filter"`
	Lightbox       string         `json:"lightbox,omitempty"`
	Nav            nav.State      `json:"nav"`
	Unmounted      bool           `json:"unmounted"`
}

func (v *View) Snapshot() Snapshot {
	s := Snapshot{
		ID:             v.ID,
		Revealed:       v.sections.RevealedKeys(),
		Counters:       v.Counters(),
		CountersDone:   v.CountersSettled(),
		SkillBars:      v.bars.Names(),
		Hero:           v.HeroText(),
		SkillsFilter:   v.skills.Active(),
		ProjectsFilter: v.projects.Active(),
		Nav:            v.tracker.State(),
		Unmounted:      v.Unmounted(),
	}
	if s.Revealed == nil {
		s.Revealed = []string{}
	}
	if s.SkillBars == nil {
		s.SkillBars = []string{}
	}
	if c, open := v.lightbox.Current(); open {
		s.Lightbox = c.ID
	}
	return s
}
