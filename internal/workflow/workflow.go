// Package workflow owns the point-selection and risk-analysis state machine.
//
// A workflow is either empty (no point selected) or holds a point together
// with the lifecycle of its analysis request: idle, loading, succeeded, or
// failed. Every selection starts a new generation with its own cancellable
// context; results that arrive for an older generation are discarded.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/observe"
	"github.com/sells-group/floodsense/internal/resolver"
	"github.com/sells-group/floodsense/pkg/predict"
)

// ErrClosed is returned by Settled once the workflow has been closed.
var ErrClosed = eris.New("workflow: closed")

// FailureMessage is the user-visible notice raised when an analysis fails.
const FailureMessage = "Failed to analyze flood risk."

// Level is the severity of a Notification.
type Level string

const (
	LevelError Level = "error"
)

// Notification is a transient user-visible message.
type Notification struct {
	Level   Level       `json:"level" yaml:"level"`
	Message string      `json:"message" yaml:"message"`
	Point   model.Point `json:"point" yaml:"point"`
	At      time.Time   `json:"at" yaml:"at"`
	Err     error       `json:"-" yaml:"-"`
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithContext sets the parent context of all in-flight work.
func WithContext(ctx context.Context) Option {
	return func(w *Workflow) {
		w.parent = ctx
	}
}

// WithSessionID sets the session identifier reported in snapshots.
func WithSessionID(id string) Option {
	return func(w *Workflow) {
		w.sessionID = id
	}
}

// Workflow serializes every state transition behind one mutex, so
// subscribers observe snapshots in mutation order.
type Workflow struct {
	client    predict.Client
	resolver  *resolver.Resolver
	parent    context.Context
	sessionID string

	states *observe.Hub[model.Snapshot]
	notes  *observe.Hub[Notification]

	mu      sync.Mutex
	gen     uint64
	point   *model.Point
	request model.RequestState
	geocode model.GeocodeState
	selCtx  context.Context
	cancel  context.CancelFunc
	changed chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// New returns an empty workflow that analyzes points with client and names
// them with res.
func New(client predict.Client, res *resolver.Resolver, opts ...Option) *Workflow {
	w := &Workflow{
		client:   client,
		resolver: res,
		parent:   context.Background(),
		states:   observe.NewHub[model.Snapshot](),
		notes:    observe.NewHub[Notification](),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sessionID == "" {
		w.sessionID = uuid.NewString()
	}
	return w
}

// SessionID returns the workflow's session identifier.
func (w *Workflow) SessionID() string {
	return w.sessionID
}

// SelectPoint selects p from any state. Any earlier result is discarded,
// the analysis request returns to idle, and a place-name lookup for p
// starts. In-flight work for the previous selection is canceled and its
// eventual outcome ignored.
func (w *Workflow) SelectPoint(p model.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	gen := w.nextGenerationLocked()
	ctx, cancel := context.WithCancel(w.parent)
	w.selCtx, w.cancel = ctx, cancel

	pt := p
	w.point = &pt
	w.request = model.RequestState{Status: model.RequestIdle}

	ch := w.resolver.Resolve(ctx, &pt)
	w.geocode = <-ch

	zap.L().Debug("workflow: point selected",
		zap.String("session_id", w.sessionID),
		zap.Uint64("generation", gen),
		zap.Stringer("point", pt),
	)
	w.publishLocked()

	w.wg.Add(1)
	go w.followGeocode(gen, ch)
}

// Clear returns to the empty state and clears the place name.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	gen := w.nextGenerationLocked()
	w.point = nil
	w.request = model.RequestState{Status: model.RequestIdle}
	w.geocode = <-w.resolver.Resolve(w.parent, nil)

	zap.L().Debug("workflow: selection cleared",
		zap.String("session_id", w.sessionID),
		zap.Uint64("generation", gen),
	)
	w.publishLocked()
}

// RequestAnalysis starts an analysis for the selected point. It is only
// accepted while the request is idle or failed; otherwise nothing changes
// and it returns false.
func (w *Workflow) RequestAnalysis() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.point == nil {
		return false
	}
	switch w.request.Status {
	case model.RequestIdle, model.RequestFailed:
	default:
		return false
	}

	gen := w.gen
	ctx := w.selCtx
	p := *w.point

	w.request = model.RequestState{Status: model.RequestLoading}
	zap.L().Debug("workflow: analysis requested",
		zap.String("session_id", w.sessionID),
		zap.Uint64("generation", gen),
		zap.Stringer("point", p),
	)
	w.publishLocked()

	w.wg.Add(1)
	go w.analyze(ctx, gen, p)
	return true
}

func (w *Workflow) analyze(ctx context.Context, gen uint64, p model.Point) {
	defer w.wg.Done()

	start := time.Now()
	result, err := w.client.Analyze(ctx, p)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		zap.L().Debug("workflow: discarding stale analysis",
			zap.String("session_id", w.sessionID),
			zap.Uint64("generation", gen),
			zap.Uint64("current", w.gen),
		)
		return
	}

	if err != nil {
		w.request = model.RequestState{Status: model.RequestFailed, Err: err}
		zap.L().Warn("workflow: analysis failed",
			zap.String("session_id", w.sessionID),
			zap.Stringer("point", p),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		w.publishLocked()
		w.notes.Publish(Notification{
			Level:   LevelError,
			Message: FailureMessage,
			Point:   p,
			At:      time.Now(),
			Err:     err,
		})
		return
	}

	w.request = model.RequestState{Status: model.RequestSucceeded, Result: result}
	zap.L().Info("workflow: analysis complete",
		zap.String("session_id", w.sessionID),
		zap.Stringer("point", p),
		zap.Float64("risk_score", result.RiskScore),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.publishLocked()
}

func (w *Workflow) followGeocode(gen uint64, ch <-chan model.GeocodeState) {
	defer w.wg.Done()
	for st := range ch {
		w.mu.Lock()
		if gen == w.gen {
			w.geocode = st
			w.publishLocked()
		}
		w.mu.Unlock()
	}
}

// nextGenerationLocked bumps the generation and cancels the previous
// selection's in-flight work.
func (w *Workflow) nextGenerationLocked() uint64 {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.selCtx = nil
	return w.gen
}

func (w *Workflow) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		SessionID:  w.sessionID,
		Generation: w.gen,
		Request:    w.request,
		Geocode:    w.geocode,
	}
	if w.point != nil {
		pt := *w.point
		snap.Point = &pt
	}
	return snap
}

func (w *Workflow) publishLocked() {
	w.states.Publish(w.snapshotLocked())
	close(w.changed)
	w.changed = make(chan struct{})
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Subscribe streams a snapshot after every state change.
func (w *Workflow) Subscribe(buf int) (<-chan model.Snapshot, func()) {
	return w.states.Subscribe(buf)
}

// Notifications streams user-visible failure notices.
func (w *Workflow) Notifications(buf int) (<-chan Notification, func()) {
	return w.notes.Subscribe(buf)
}

// Settled blocks until neither the analysis nor the place-name lookup of
// the current selection is in flight, then returns the snapshot.
func (w *Workflow) Settled(ctx context.Context) (model.Snapshot, error) {
	for {
		w.mu.Lock()
		snap := w.snapshotLocked()
		changed := w.changed
		closed := w.closed
		w.mu.Unlock()

		if snap.Settled() {
			return snap, nil
		}
		if closed {
			return snap, ErrClosed
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Close cancels in-flight work, waits for it to finish, and closes all
// subscriptions, including the resolver's. The workflow ignores every call
// afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.nextGenerationLocked()
	close(w.changed)
	w.mu.Unlock()

	w.wg.Wait()
	w.resolver.Close()
	w.states.Close()
	w.notes.Close()
}
