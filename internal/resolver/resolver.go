// Package resolver turns the selected point into a place name, keeping at
// most one reverse-geocoding lookup live at a time.
package resolver

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/observe"
	"github.com/sells-group/floodsense/pkg/geocode"
)

// Resolver resolves place names for points. A newer Resolve call always
// supersedes older ones; superseded lookups never emit their outcome.
type Resolver struct {
	rev geocode.Reverser
	hub *observe.Hub[model.GeocodeState]

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current model.GeocodeState

	wg sync.WaitGroup
}

// New returns a Resolver that looks names up through rev.
func New(rev geocode.Reverser) *Resolver {
	return &Resolver{
		rev: rev,
		hub: observe.NewHub[model.GeocodeState](),
	}
}

// Resolve starts resolving p and returns the stream of states for this
// call. The loading state is already queued when Resolve returns. The
// channel receives the final state and is then closed, unless a later call
// supersedes this one first, in which case it is closed with no final value.
//
// A nil p clears the state to {nil, false} without any lookup.
func (r *Resolver) Resolve(ctx context.Context, p *model.Point) <-chan model.GeocodeState {
	out := make(chan model.GeocodeState, 2)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if p == nil {
		st := model.GeocodeState{}
		r.setLocked(st)
		out <- st
		close(out)
		return out
	}

	loading := model.GeocodeState{Loading: true}
	r.setLocked(loading)
	out <- loading

	lookupCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.lookup(lookupCtx, gen, *p, out)

	return out
}

func (r *Resolver) lookup(ctx context.Context, gen uint64, p model.Point, out chan<- model.GeocodeState) {
	defer r.wg.Done()
	defer close(out)

	name, err := r.rev.Reverse(ctx, p.Lat, p.Lng)
	if err != nil {
		zap.L().Debug("resolver: lookup failed, using coordinates",
			zap.Stringer("point", p),
			zap.Error(err),
		)
		name = geocode.FallbackName(p.Lat, p.Lng)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		zap.L().Debug("resolver: dropping superseded lookup",
			zap.Stringer("point", p),
			zap.Uint64("generation", gen),
		)
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	st := model.GeocodeState{LocationName: &name}
	r.setLocked(st)
	out <- st
}

func (r *Resolver) setLocked(st model.GeocodeState) {
	r.current = st
	r.hub.Publish(st)
}

// Current returns the latest state.
func (r *Resolver) Current() model.GeocodeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Subscribe streams every state change; cancel unsubscribes.
func (r *Resolver) Subscribe(buf int) (<-chan model.GeocodeState, func()) {
	return r.hub.Subscribe(buf)
}

// Wait blocks until no lookup goroutine is running.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels any in-flight lookup, waits for it, and closes subscribers.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.hub.Close()
}
