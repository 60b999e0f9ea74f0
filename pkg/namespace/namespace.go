// Package namespace holds the process-wide registry of simulation
// instances. Each namespace owns one store file, one in-memory World
// cache, and one engine serializer goroutine; there is no shared mutable
// state across namespaces except this registry itself.
package namespace

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/monument-sim/monument/pkg/config"
	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/events"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

// Pattern is the identifier format every namespace must match (§3).
// Path construction never concatenates raw user input; it always goes
// through Valid first.
var Pattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Valid reports whether id is a well-formed namespace identifier.
func Valid(id string) bool {
	return Pattern.MatchString(id)
}

// ErrInvalidNamespace mirrors store.ErrInvalidNamespace for the intake
// path's step 1 check, kept local so callers don't need to import store
// just to recognize the format error.
var ErrInvalidNamespace = store.ErrInvalidNamespace

// Handle owns one namespace's full runtime: its store, its engine
// serializer, and the event hub feeding that namespace's WS subscribers.
type Handle struct {
	ID     string
	Store  *store.Store
	Engine *engine.Engine
	Events *events.Hub

	mu           sync.Mutex
	lastActivity time.Time
}

func (h *Handle) touch() {
	h.mu.Lock()
	h.lastActivity = time.Now()
	h.mu.Unlock()
}

// IdleSince returns how long it has been since this handle was opened or
// last passed to Registry.Touch. Tick advances and open WS connections do
// not reset it.
func (h *Handle) IdleSince() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.lastActivity)
}

// Close releases the handle's store file and stops its engine goroutine.
func (h *Handle) Close() error {
	h.Engine.Stop()
	return h.Store.Close()
}

// Registry is the process-wide map id → Handle, behind a narrow lock held
// only for open/close; per-namespace engine state is owned entirely by
// that namespace's own serializer goroutine once opened.
type Registry struct {
	cfg *config.Config

	mu       sync.RWMutex
	handles  map[string]*Handle
}

// NewRegistry creates an empty registry rooted at cfg.DataDir.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:     cfg,
		handles: make(map[string]*Handle),
	}
}

// Get returns the open handle for id, if any, without creating one.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// List returns the ids of all currently open handles.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// Open returns the existing handle for id or lazily opens one from the
// on-disk store (creating a fresh store file on first touch with the
// registry's built-in namespace defaults). This is the "implicit create
// on first access" path named in §3's Lifecycles.
func (r *Registry) Open(ctx context.Context, id string) (*Handle, error) {
	if !Valid(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, id)
	}

	if h, ok := r.Get(id); ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		return h, nil
	}

	h, err := r.open(ctx, id, r.cfg.NamespaceDefaults.Width, r.cfg.NamespaceDefaults.Height)
	if err != nil {
		return nil, err
	}
	r.handles[id] = h
	return h, nil
}

// Create explicitly provisions a namespace with the given grid dimensions
// and scoring/visibility settings, failing if one already exists. This is
// the explicit create endpoint Design Notes §9 calls out as optional.
func (r *Registry) Create(ctx context.Context, id string, width, height int, scoringInterval, epoch int64, visibilityRadius *int, pointsEnabled bool) (*Handle, error) {
	if !Valid(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[id]; ok {
		return nil, fmt.Errorf("namespace %q already open", id)
	}

	st, fresh, err := store.Open(ctx, r.cfg.DataDir, id)
	if err != nil {
		return nil, err
	}
	if !fresh {
		_ = st.Close()
		return nil, fmt.Errorf("namespace %q already exists on disk", id)
	}

	w := world.New(width, height)
	w.Epoch = epoch
	w.ScoringInterval = scoringInterval
	w.VisibilityRadius = visibilityRadius
	w.PointsEnabled = pointsEnabled
	if err := st.InitWorldMeta(ctx, w); err != nil {
		_ = st.Close()
		return nil, err
	}

	h := r.newHandle(id, st, w)
	r.handles[id] = h
	return h, nil
}

// Reset closes and reopens a namespace's handle, reconstructing World from
// Store. Still refuses on SchemaMismatch. Useful after an out-of-band
// store edit or a version bump during development.
func (r *Registry) Reset(ctx context.Context, id string) (*Handle, error) {
	if !Valid(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		_ = h.Close()
		delete(r.handles, id)
	}

	h, err := r.open(ctx, id, r.cfg.NamespaceDefaults.Width, r.cfg.NamespaceDefaults.Height)
	if err != nil {
		return nil, err
	}
	r.handles[id] = h
	return h, nil
}

// EvictIdle closes and removes the in-memory handle for id. The store
// file and its append-only history are untouched; the namespace reopens
// lazily on the next request. Used by the idle-handle cleanup sweeper,
// never by any path that must preserve an in-flight tick.
func (r *Registry) EvictIdle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return
	}
	delete(r.handles, id)
	_ = h.Close()
}

// CloseAll shuts down every open handle, used at server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.handles {
		_ = h.Close()
		delete(r.handles, id)
	}
}

func (r *Registry) open(ctx context.Context, id string, defaultWidth, defaultHeight int) (*Handle, error) {
	st, fresh, err := store.Open(ctx, r.cfg.DataDir, id)
	if err != nil {
		return nil, err
	}

	if fresh {
		w := world.New(defaultWidth, defaultHeight)
		w.Epoch = r.cfg.NamespaceDefaults.Epoch
		w.ScoringInterval = r.cfg.NamespaceDefaults.ScoringInterval
		w.PointsEnabled = r.cfg.NamespaceDefaults.PointsEnabled
		w.VisibilityRadius = r.cfg.NamespaceDefaults.VisibilityRadius
		w.Goal = r.cfg.NamespaceDefaults.DefaultGoal
		if err := st.InitWorldMeta(ctx, w); err != nil {
			_ = st.Close()
			return nil, err
		}
		return r.newHandle(id, st, w), nil
	}

	w, err := st.LoadWorld(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return r.newHandle(id, st, w), nil
}

func (r *Registry) newHandle(id string, st *store.Store, w *world.World) *Handle {
	hub := events.NewHub()
	eng := engine.New(id, st, w, hub, r.cfg.MaxCollectTimeout)
	eng.Start()
	h := &Handle{
		ID:           id,
		Store:        st,
		Engine:       eng,
		Events:       hub,
		lastActivity: time.Now(),
	}
	return h
}

// Touch records activity on id's handle for idle-eviction purposes. No-op
// if the namespace is not currently open.
func (r *Registry) Touch(id string) {
	if h, ok := r.Get(id); ok {
		h.touch()
	}
}
