// Package dispatch sends request snapshots in the background and hands the
// outcome back to the owner through a per-request single-slot exchange.
//
// The Dispatcher itself belongs to one goroutine (the owner). Only the
// exchange goroutines run concurrently, and each of them writes exactly once
// into its own buffered channel, so a send that is replaced by a newer one
// simply finishes into a channel nobody reads anymore.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"packets/internal/types"
)

var (
	ErrInvalidUTF8 = errors.New("Response is invalid UTF-8") //nolint:staticcheck // shown to the user as is
	ErrNoExchange  = errors.New("no exchange for request")
)

// Result is the outcome of one exchange. Text holds the body when Err is nil.
// A body that is not UTF-8 keeps its Response next to ErrInvalidUTF8.
type Result struct {
	Response *Response
	Text     string
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Recorder receives every finished exchange. storage.Store satisfies it.
type Recorder interface {
	Put(e *types.Entry) (string, error)
}

// Exchange is the in-flight or finished send for one request.
type Exchange struct {
	Gen     uint64
	Started time.Time

	done   chan Result
	result *Result
}

type Dispatcher struct {
	fetcher  Fetcher
	notify   func(uuid.UUID)
	recorder Recorder
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	gen   uint64
	slots map[uuid.UUID]*Exchange
}

type Option func(*Dispatcher)

// WithNotify registers a callback invoked from the exchange goroutine once a
// result is ready. It must be safe to call concurrently.
func WithNotify(fn func(uuid.UUID)) Option {
	return func(d *Dispatcher) { d.notify = fn }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func New(f Fetcher, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		fetcher: f,
		ctx:     ctx,
		cancel:  cancel,
		slots:   map[uuid.UUID]*Exchange{},
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Send starts the exchange and returns immediately. Any earlier exchange for
// id is detached; its result will never be observed.
func (d *Dispatcher) Send(id uuid.UUID, w Wire) *Exchange {
	d.gen++
	ex := &Exchange{Gen: d.gen, Started: time.Now(), done: make(chan Result, 1)}
	d.slots[id] = ex

	d.logger.Debug("send", "request", id, "gen", ex.Gen, "method", w.Method, "url", w.URL)
	go func() {
		res := d.exchange(w)
		ex.done <- res
		d.record(id, w, ex.Started, res)
		if d.notify != nil {
			d.notify(id)
		}
	}()
	return ex
}

func (d *Dispatcher) exchange(w Wire) Result {
	resp, err := d.fetcher.Fetch(d.ctx, w)
	if err != nil {
		return Result{Err: err}
	}
	if !utf8.Valid(resp.Body) {
		return Result{Response: resp, Err: ErrInvalidUTF8}
	}
	return Result{Response: resp, Text: string(resp.Body)}
}

// Poll returns the result for id once available. A received result stays in
// the slot, so later polls return it again until the next Send.
func (d *Dispatcher) Poll(id uuid.UUID) (Result, bool) {
	ex, ok := d.slots[id]
	if !ok {
		return Result{}, false
	}
	if ex.result != nil {
		return *ex.result, true
	}
	select {
	case res := <-ex.done:
		ex.result = &res
		return res, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the current exchange for id finishes or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context, id uuid.UUID) (Result, error) {
	ex, ok := d.slots[id]
	if !ok {
		return Result{}, ErrNoExchange
	}
	if ex.result != nil {
		return *ex.result, nil
	}
	select {
	case res := <-ex.done:
		ex.result = &res
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Pending reports whether a send for id is still in flight.
func (d *Dispatcher) Pending(id uuid.UUID) bool {
	if _, ok := d.slots[id]; !ok {
		return false
	}
	_, ready := d.Poll(id)
	return !ready
}

// Forget drops the slot for id, e.g. when the request was removed.
func (d *Dispatcher) Forget(id uuid.UUID) {
	delete(d.slots, id)
}

// Close cancels every exchange still in flight.
func (d *Dispatcher) Close() {
	d.cancel()
}

func (d *Dispatcher) record(id uuid.UUID, w Wire, started time.Time, res Result) {
	if d.recorder == nil {
		return
	}
	e := NewEntry(id, w, started, res)
	if _, err := d.recorder.Put(e); err != nil {
		d.logger.Warn("record history", "request", id, "err", err)
	}
}

// NewEntry converts a finished exchange into a history entry.
func NewEntry(id uuid.UUID, w Wire, started time.Time, res Result) *types.Entry {
	e := &types.Entry{
		RequestID:  id.String(),
		Name:       w.Name,
		StartedAt:  started,
		Method:     w.Method,
		URL:        w.URL,
		ReqHeaders: append([]types.KV{}, w.Headers...),
		ReqBody:    append([]byte{}, w.Body...),
	}
	if res.Response != nil {
		e.Duration = res.Response.Duration
		e.Status = res.Response.Status
		e.StatusText = res.Response.StatusText
		e.RespHeaders = res.Response.Headers
		e.RespBody = res.Response.Body
	} else {
		e.Duration = time.Since(started)
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}
