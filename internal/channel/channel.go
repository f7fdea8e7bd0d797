// Package channel implements C8: the persistent bidirectional request
// channel. No websocket library exists anywhere in the retrieved example
// pack, so the channel is implemented as one-POST-per-control-frame
// (translate/cancel/detect) paired with a per-client Server-Sent-Events
// stream for chunk/result/error frames — grounded directly on
// internal/httpapi/handlers_chat.go's existing SSE branch (text/event-stream
// headers, http.Flusher write loop, byte cap) and on internal/events/bus.go's
// Subscriber{C chan Event, done chan struct{}} pub/sub, repurposed here to
// multiplex frames to the owning client instead of broadcasting globally.
package channel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// FrameKind distinguishes the three Core -> Client frame shapes in
// spec.md §4.8.
type FrameKind string

const (
	FrameChunk  FrameKind = "chunk"
	FrameResult FrameKind = "result"
	FrameError  FrameKind = "error"
)

// Frame is one Core -> Client message.
type Frame struct {
	RequestID string                 `json:"request_id"`
	Kind      FrameKind              `json:"-"`
	Chunk     string                 `json:"chunk,omitempty"`
	Result    *core.TranslationResult `json:"result,omitempty"`
	Error     *ErrorFrame             `json:"error,omitempty"`
}

// ErrorFrame is the client-visible error shape from spec.md §7.
type ErrorFrame struct {
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}

// Subscriber is one client's SSE frame stream, mirroring
// internal/events/bus.go's Subscriber shape.
type Subscriber struct {
	C    chan Frame
	done chan struct{}
}

type inFlight struct {
	requestID string
	clientID  string
	cancel    context.CancelFunc
	timer     *time.Timer
}

// Handler is the orchestrator call signature the channel drives: it must
// honor ctx cancellation at every suspension point, per spec.md §5.
type Handler func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error)

// Channel owns every InFlightRequest for the lifetime of a request, per
// spec.md §3's ownership rule; the orchestrator never holds a handle, only
// the cancel-aware context passed into Handler.
type Channel struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber     // clientID -> subscriber
	inflight    map[string]map[string]*inFlight // clientID -> requestID -> record
	onStart     func(model string)
	onFinish    func(model string, failed bool)
	logger      *slog.Logger
}

type Option func(*Channel)

// WithLifecycleHooks wires C9 status updates into request start/finish.
func WithLifecycleHooks(onStart func(model string), onFinish func(model string, failed bool)) Option {
	return func(c *Channel) { c.onStart = onStart; c.onFinish = onFinish }
}

func WithLogger(l *slog.Logger) Option { return func(c *Channel) { c.logger = l } }

func New(opts ...Option) *Channel {
	c := &Channel{
		subscribers: make(map[string]*Subscriber),
		inflight:    make(map[string]map[string]*inFlight),
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Attach opens a client's SSE stream.
func (c *Channel) Attach(clientID string, bufSize int) *Subscriber {
	if bufSize <= 0 {
		bufSize = 64
	}
	sub := &Subscriber{C: make(chan Frame, bufSize), done: make(chan struct{})}
	c.mu.Lock()
	c.subscribers[clientID] = sub
	c.mu.Unlock()
	return sub
}

// Detach handles client disconnect: cancels and deletes every InFlightRequest
// owned by clientID, within one critical section (spec.md scenario 6: "within
// one tick all N cancel handles must have fired").
func (c *Channel) Detach(clientID string) {
	c.mu.Lock()
	reqs := c.inflight[clientID]
	delete(c.inflight, clientID)
	sub, ok := c.subscribers[clientID]
	delete(c.subscribers, clientID)
	c.mu.Unlock()

	for _, r := range reqs {
		r.timer.Stop()
		r.cancel()
	}
	if ok {
		close(sub.done)
		close(sub.C)
	}
}

// Translate allocates an InFlightRequest, arms the deadline timer (unary 20s,
// streaming 60s unless req.Deadline is set), increments the active counter,
// and spawns the handler call; every exit path clears the timer and
// decrements active exactly once, per spec.md §4.8.
func (c *Channel) Translate(parent context.Context, clientID, requestID string, req core.TranslationRequest, h Handler) {
	ctx, cancel := context.WithCancel(parent)
	deadline := req.DefaultDeadline(time.Now())
	timer := time.AfterFunc(time.Until(deadline), cancel)

	rec := &inFlight{requestID: requestID, clientID: clientID, cancel: cancel, timer: timer}

	c.mu.Lock()
	if c.inflight[clientID] == nil {
		c.inflight[clientID] = make(map[string]*inFlight)
	}
	c.inflight[clientID][requestID] = rec
	c.mu.Unlock()

	if c.onStart != nil {
		c.onStart(req.Model)
	}

	go c.run(ctx, clientID, requestID, req, h, rec)
}

func (c *Channel) run(ctx context.Context, clientID, requestID string, req core.TranslationRequest, h Handler, rec *inFlight) {
	var failed bool
	defer func() {
		rec.timer.Stop()
		c.mu.Lock()
		if m, ok := c.inflight[clientID]; ok {
			delete(m, requestID)
		}
		c.mu.Unlock()
		if c.onFinish != nil {
			c.onFinish(req.Model, failed)
		}
	}()

	onChunk := func(text string) {
		c.send(clientID, Frame{RequestID: requestID, Kind: FrameChunk, Chunk: text})
	}

	result, err := h(ctx, req, onChunk)
	if err != nil {
		failed = true
		if ctx.Err() != nil {
			// Cancellation/timeout produces exactly one Cancelled error
			// frame and no further frames, per spec.md §5.
			c.send(clientID, Frame{RequestID: requestID, Kind: FrameError, Error: &ErrorFrame{
				Message: string(core.ErrCancelled), Retryable: false,
			}})
			return
		}
		c.send(clientID, Frame{RequestID: requestID, Kind: FrameError, Error: classifyForClient(err)})
		return
	}
	c.send(clientID, Frame{RequestID: requestID, Kind: FrameResult, Result: &result})
}

func classifyForClient(err error) *ErrorFrame {
	if ce, ok := err.(*core.ClassifiedError); ok {
		return &ErrorFrame{Message: string(ce.Kind), Retryable: ce.Kind.Retryable(), RetryAfterMs: ce.RetryAfter}
	}
	if pe, ok := err.(*core.ProviderError); ok {
		return &ErrorFrame{Message: string(pe.Kind), Retryable: pe.Kind.Retryable(), RetryAfterMs: pe.RetryAfter}
	}
	return &ErrorFrame{Message: err.Error(), Retryable: false}
}

// Cancel triggers the cancel handle for requestID and deletes the record.
// Calling Cancel more than once is a no-op, leaving active_count unchanged
// beyond the first call (spec.md §8's idempotence property).
func (c *Channel) Cancel(clientID, requestID string) {
	c.mu.Lock()
	m, ok := c.inflight[clientID]
	var rec *inFlight
	if ok {
		rec, ok = m[requestID]
		if ok {
			delete(m, requestID)
		}
	}
	c.mu.Unlock()
	if !ok || rec == nil {
		return
	}
	rec.timer.Stop()
	rec.cancel()
}

func (c *Channel) send(clientID string, f Frame) {
	c.mu.Lock()
	sub, ok := c.subscribers[clientID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case sub.C <- f:
	case <-sub.done:
	default:
		c.logger.Warn("channel: dropping frame, client buffer full", "client_id", clientID, "request_id", f.RequestID)
	}
}

// ActiveCount returns the number of in-flight requests across every client.
func (c *Channel) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.inflight {
		n += len(m)
	}
	return n
}
