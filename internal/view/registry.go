package view

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kanileenas/portfolio/internal/content"
	"github.com/kanileenas/portfolio/internal/sched"
)

const (
	// DefaultTTL is how long a view may go without requests before it expires.
	DefaultTTL = 30 * time.Minute
	// DefaultLimit bounds how many views are mounted at once.
	DefaultLimit = 5000
)

// Registry owns every mounted view.
type Registry struct {
	site   *content.Site
	opts   Options
	ttl    time.Duration
	limit  int
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry creates a registry mounting views over site. A zero TTL means
// DefaultTTL; a nil scheduler means wall-clock timers.
func NewRegistry(site *content.Site, opts Options, ttl time.Duration, logger *zap.Logger) *Registry {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.NewTimer()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		site:   site,
		opts:   opts,
		ttl:    ttl,
		limit:  DefaultLimit,
		logger: logger,
		now:    time.Now,
		views:  make(map[string]*View),
	}
}

// SetLimit changes how many views may be mounted at once. Zero or less
// means DefaultLimit.
func (r *Registry) SetLimit(n int) {
	if n <= 0 {
		n = DefaultLimit
	}
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

// Mount creates a view for a fresh page load. At the limit, the view idle
// the longest is unmounted to make room.
func (r *Registry) Mount() *View {
	id := ulid.Make().String()
	v := newView(id, r.site, r.opts, r.logger, r.now())

	var evicted []*View
	r.mu.Lock()
	for len(r.views) >= r.limit {
		old := r.oldestLocked()
		if old == nil {
			break
		}
		delete(r.views, old.ID)
		evicted = append(evicted, old)
	}
	r.views[id] = v
	n := len(r.views)
	r.mu.Unlock()

	for _, old := range evicted {
		old.Unmount()
		r.logger.Info("evicted view at registry limit", zap.String("view_id", old.ID))
	}
	r.logger.Debug("view mounted", zap.String("view_id", id), zap.Int("views", n))
	return v
}

func (r *Registry) oldestLocked() *View {
	var oldest *View
	for _, v := range r.views {
		if oldest == nil || v.idleSince().Before(oldest.idleSince()) {
			oldest = v
		}
	}
	return oldest
}

// Get looks up a view and marks it as active.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	v.touch(r.now())
	return v, nil
}

// Unmount tears down a view and forgets it.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	v.Unmount()
	r.logger.Debug("view unmounted", zap.String("view_id", id))
	return nil
}

// Sweep unmounts views idle for longer than the TTL and reports how many.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var expired []*View

	r.mu.Lock()
	for id, v := range r.views {
		if v.idleSince().Before(cutoff) {
			expired = append(expired, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Unmount()
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle views", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx ends, then unmounts everything.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	for _, v := range views {
		v.Unmount()
	}
}

// Len reports how many views are mounted.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Site returns the catalog views are built over.
func (r *Registry) Site() *content.Site {
	return r.site
}
