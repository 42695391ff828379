// Package state keeps the per-visitor stores, keyed by session id.
package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"cafefinder.de/web/internal/directory"
	"cafefinder.de/web/internal/menu"
	"cafefinder.de/web/internal/strapi"
)

const defaultTTL = 30 * time.Minute

// Visitor bundles the stores of one session.
type Visitor struct {
	Directory *directory.Store
	Menu      *menu.Store

	lastSeen time.Time
}

// Config controls how visitor stores are built and expired.
type Config struct {
	TTL         time.Duration
	DefaultCity string
	Logger      *zap.Logger
	Now         func() time.Time
}

// Registry is safe for concurrent use. Idle visitors are dropped lazily.
type Registry struct {
	finder strapi.Finder
	cfg    Config

	mu        sync.Mutex
	visitors  map[string]*Visitor
	lastSweep time.Time
}

// NewRegistry returns an empty registry whose stores read from finder.
func NewRegistry(finder strapi.Finder, cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		finder:    finder,
		cfg:       cfg,
		visitors:  map[string]*Visitor{},
		lastSweep: cfg.Now(),
	}
}

// Get returns the stores of session id, creating them on first use.
func (r *Registry) Get(id string) *Visitor {
	now := r.cfg.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastSweep) >= r.cfg.TTL/2 {
		r.sweepLocked(now)
	}
	v, ok := r.visitors[id]
	if !ok || now.Sub(v.lastSeen) > r.cfg.TTL {
		logger := r.cfg.Logger.With(zap.String("session_id", id))
		opts := []directory.Option{directory.WithLogger(logger)}
		if r.cfg.DefaultCity != "" {
			opts = append(opts, directory.WithDefaultCity(r.cfg.DefaultCity))
		}
		v = &Visitor{
			Directory: directory.NewStore(r.finder, opts...),
			Menu:      menu.NewStore(r.finder, menu.WithLogger(logger)),
		}
		r.visitors[id] = v
	}
	v.lastSeen = now
	return v
}

// Len returns the number of live visitors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

func (r *Registry) sweepLocked(now time.Time) {
	for id, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.cfg.TTL {
			delete(r.visitors, id)
		}
	}
	r.lastSweep = now
}
