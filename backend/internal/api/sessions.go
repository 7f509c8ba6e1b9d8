package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/metrics"
	"kgraph-atlas/backend/internal/workspace"
	apperrors "kgraph-atlas/backend/pkg/errors"
	"kgraph-atlas/backend/pkg/logger"
)

// session is one open graph view. mu serializes every call on the
// controller, acting as the view's event queue.
type session struct {
	id       string
	mu       sync.Mutex
	ctrl     *workspace.Controller
	lastSeen atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Registry tracks open view sessions
type Registry struct {
	mu      sync.RWMutex
	views   map[string]*session
	idle    time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

// NewRegistry creates a registry whose sessions expire after idle
func NewRegistry(idle time.Duration, m *metrics.Collector) *Registry {
	return &Registry{
		views:   make(map[string]*session),
		idle:    idle,
		metrics: m,
		logger:  logger.Named("views"),
		now:     time.Now,
	}
}

// open registers a controller under a fresh view id
func (r *Registry) open(ctrl *workspace.Controller) *session {
	s := &session{id: uuid.NewString(), ctrl: ctrl}
	s.touch(r.now())

	r.mu.Lock()
	r.views[s.id] = s
	n := len(r.views)
	r.mu.Unlock()

	r.metrics.SetActiveViews(n)
	r.logger.Debug("View opened", zap.String("view_id", s.id))
	return s
}

// get looks up a view and marks it as used
func (r *Registry) get(id string) (*session, error) {
	r.mu.RLock()
	s, ok := r.views[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewViewNotFound(id)
	}
	s.touch(r.now())
	return s, nil
}

// Close removes a view and invalidates its pending fetches
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.views[id]
	delete(r.views, id)
	n := len(r.views)
	r.mu.Unlock()
	if !ok {
		return apperrors.NewViewNotFound(id)
	}

	s.mu.Lock()
	s.ctrl.Close()
	s.mu.Unlock()

	r.metrics.SetActiveViews(n)
	r.logger.Debug("View closed", zap.String("view_id", id))
	return nil
}

// Len returns the number of open views
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// Sweep closes every view idle for longer than the idle timeout and returns
// how many were closed
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	now := r.now()

	r.mu.RLock()
	expired := make([]string, 0)
	for id, s := range r.views {
		if s.idleSince(now) > r.idle {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if err := r.Close(id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		r.logger.Info("Closed idle views", zap.Int("count", closed))
	}
	return closed
}

// Run sweeps idle views every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
