// Package itemsync keeps a local view of shared items consistent with the
// remote store under concurrent create and delete operations.
//
// The engine owns a single Snapshot, the ordered item list plus its
// load/error status, and replaces it wholesale on every state transition,
// never mutating it in place. Reads go through an atomic pointer, so a
// consumer always sees a coherent snapshot with no tearing.
//
// Mutations are reconciled against the server rather than trusted locally:
// a create is applied only once the server confirms it (the server assigns
// the ID and the display name, so nothing fabricated is ever shown), then a
// refresh picks up the authoritative ordering; a delete is applied
// optimistically before the call resolves, and a failed delete triggers an
// automatic refresh that resynchronizes the list with whatever the server
// actually holds.
//
// Transitions apply in the order their underlying remote calls complete,
// not the order they were issued. A refresh racing a slow delete can
// therefore overwrite the optimistic removal until the next reconciling
// read: last writer wins on completion. Callers that need the final state
// should read the snapshot after their operation returns.
//
//	eng := itemsync.New(gateway.New(baseURL), itemsync.WithLogger(logger))
//	eng.OnChange(func(s itemsync.Snapshot) { render(s) })
//	eng.Initialize(ctx)
package itemsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/lanshare/gateway"
	"github.com/hazyhaar/lanshare/item"
)

// Status is the load state of a Snapshot.
type Status string

const (
	StatusLoading Status = "loading" // a list call is in flight
	StatusReady   Status = "ready"   // Items mirrors the last successful read
	StatusError   Status = "error"   // the last read failed; Err describes it
)

// Snapshot is the engine's current view of the remote store. Items is in
// server order (newest first) after reconciliation; between an optimistic
// change and the next successful refresh it may transiently differ.
// Consumers must treat Items as read-only; the engine shares the backing
// array across reads of the same snapshot.
type Snapshot struct {
	Items  []item.Item
	Status Status
	Err    string // present only when Status is StatusError
}

func (s *Snapshot) clone() *Snapshot {
	next := *s
	next.Items = slices.Clone(s.Items)
	return &next
}

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("itemsync: engine closed")

// Engine synchronizes the local item snapshot with a remote store through
// a gateway.Client. It is safe for concurrent use; state transitions are
// serialized and applied in remote-call completion order.
type Engine struct {
	gw     gateway.Client
	logger *slog.Logger

	mu       sync.Mutex // serializes transitions and guards onChange
	snap     atomic.Pointer[Snapshot]
	gen      atomic.Int64 // bumped by Close; stale completions are discarded
	closed   atomic.Bool
	onChange []func(Snapshot)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for reconciliation failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over gw. The initial snapshot is empty with
// StatusLoading; call Initialize to populate it.
func New(gw gateway.Client, opts ...Option) *Engine {
	e := &Engine{
		gw:     gw,
		logger: slog.Default(),
	}
	e.snap.Store(&Snapshot{Status: StatusLoading})
	for _, o := range opts {
		o(e)
	}
	return e
}

// Snapshot returns the current snapshot. Cheap; callable from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// Items is shorthand for Snapshot().Items.
func (e *Engine) Items() []item.Item {
	return e.snap.Load().Items
}

// OnChange registers fn to run after every state transition, with the
// snapshot that transition produced. Callbacks run synchronously on the
// transitioning goroutine and must not invoke engine operations; reading
// Snapshot() is fine.
func (e *Engine) OnChange(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

// Initialize performs the first load: StatusLoading, then a list call that
// lands on StatusReady or StatusError. Intended to run once per session
// start; Refresh has identical transition logic and is callable any time.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.Refresh(ctx)
}

// Refresh re-reads the authoritative list from the server and replaces
// Items with exactly what it returns, superseding any provisional local
// ordering. On failure the previous Items stay visible and the snapshot
// moves to StatusError with a human-readable message.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	gen := e.gen.Load()

	e.transition(gen, func(s *Snapshot) {
		s.Status = StatusLoading
		s.Err = ""
	})

	items, err := e.gw.List(ctx)
	if err != nil {
		e.transition(gen, func(s *Snapshot) {
			s.Status = StatusError
			s.Err = gateway.Reason(err)
		})
		return err
	}

	e.transition(gen, func(s *Snapshot) {
		s.Items = items
		s.Status = StatusReady
		s.Err = ""
	})
	return nil
}

// CreateText shares a snippet. Empty or whitespace-only content fails
// locally with a *gateway.ValidationError and issues no remote call.
//
// The confirmed item is prepended to the current list purely to hide
// latency, then a reconciling refresh replaces the list with the server's
// ordering. The refresh may race other in-flight operations; its result
// wins over the prepend. A refresh failure does not fail the create (the
// item exists server-side) but moves the snapshot to StatusError as any
// failed read does.
func (e *Engine) CreateText(ctx context.Context, content string) (item.Item, error) {
	if e.closed.Load() {
		return item.Item{}, ErrClosed
	}
	if strings.TrimSpace(content) == "" {
		return item.Item{}, &gateway.ValidationError{Reason: "empty snippet content"}
	}
	gen := e.gen.Load()

	it, err := e.gw.CreateText(ctx, content)
	if err != nil {
		// Snapshot untouched: a failed mutation is a transient,
		// user-retryable event, not a view-wide error state.
		return item.Item{}, err
	}

	e.transition(gen, func(s *Snapshot) {
		s.Items = prepend(it, s.Items)
	})
	if err := e.Refresh(ctx); err != nil {
		e.logger.Warn("itemsync: reconciling refresh after create failed", "item", it.ID, "error", err)
	}
	return it, nil
}

// CreateFile shares a file payload read from r. A missing file name or nil
// reader fails locally with a *gateway.ValidationError. Otherwise the
// semantics match CreateText.
func (e *Engine) CreateFile(ctx context.Context, fileName, contentType string, r io.Reader) (item.Item, error) {
	if e.closed.Load() {
		return item.Item{}, ErrClosed
	}
	if r == nil || fileName == "" {
		return item.Item{}, &gateway.ValidationError{Reason: "no file selected"}
	}
	gen := e.gen.Load()

	it, err := e.gw.CreateFile(ctx, fileName, contentType, r)
	if err != nil {
		return item.Item{}, err
	}

	e.transition(gen, func(s *Snapshot) {
		s.Items = prepend(it, s.Items)
	})
	if err := e.Refresh(ctx); err != nil {
		e.logger.Warn("itemsync: reconciling refresh after upload failed", "item", it.ID, "error", err)
	}
	return it, nil
}

// Delete removes id optimistically: the snapshot drops the item before
// the remote call resolves, with no loading interstitial, then confirms
// with the server. On success the optimistic state is already
// authoritative. On failure the engine refreshes automatically, which both
// restores the item if the delete never happened server-side and corrects
// any other drift, and the original error is returned for notification.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	gen := e.gen.Load()

	e.transition(gen, func(s *Snapshot) {
		s.Items = slices.DeleteFunc(s.Items, func(it item.Item) bool {
			return it.ID == id
		})
	})

	if err := e.gw.Delete(ctx, id); err != nil {
		if rerr := e.Refresh(ctx); rerr != nil {
			e.logger.Warn("itemsync: rollback refresh after failed delete failed", "item", id, "error", rerr)
		}
		return err
	}
	return nil
}

// Close tears the engine down. In-flight remote calls cannot be aborted;
// their late-arriving completions are discarded so they can never touch a
// snapshot the owner has stopped observing. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.gen.Add(1)
	}
	return nil
}

// transition applies f to a copy of the current snapshot and publishes the
// result, unless gen is stale (the engine was closed after the originating
// call was issued). The mutex makes completion order the apply order.
func (e *Engine) transition(gen int64, f func(*Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen.Load() {
		return
	}
	next := e.snap.Load().clone()
	f(next)
	e.snap.Store(next)
	for _, fn := range e.onChange {
		fn(*next)
	}
}

func prepend(it item.Item, items []item.Item) []item.Item {
	out := make([]item.Item, 0, len(items)+1)
	out = append(out, it)
	return append(out, items...)
}
