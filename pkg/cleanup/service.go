// Package cleanup evicts idle namespace handles from the in-memory
// registry on a timer. It never touches durable store data — an evicted
// namespace simply reopens from its store file on the next request.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/monument-sim/monument/pkg/namespace"
)

// Service periodically sweeps the namespace registry for handles that
// have no open WS connection and have not been passed to Registry.Touch
// (action submission, scoring submission, context fetch) for longer than
// idleTTL, evicting them to free memory and close their store file
// descriptors. Tick advances do not count as activity.
type Service struct {
	registry *namespace.Registry
	idleTTL  time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup sweeper over registry. interval
// controls how often the sweep runs; idleTTL is how long a handle may sit
// unused before eviction.
func NewService(registry *namespace.Registry, idleTTL, interval time.Duration) *Service {
	return &Service{
		registry: registry,
		idleTTL:  idleTTL,
		interval: interval,
	}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup sweeper started", "idle_ttl", s.idleTTL, "interval", s.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup sweeper stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	evicted := 0
	for _, id := range s.registry.List() {
		h, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		if h.IdleSince() < s.idleTTL || h.Events.ActiveConnections() > 0 {
			continue
		}
		s.registry.EvictIdle(id)
		evicted++
	}
	if evicted > 0 {
		slog.Info("cleanup sweeper evicted idle namespaces", "count", evicted)
	}
}
