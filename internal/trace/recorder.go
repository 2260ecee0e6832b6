package trace

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Recorder accumulates the events of one evaluation in order. It is
// append-only and safe for concurrent use. Consumers may follow the
// events live with Stream; producers never wait on consumers.
type Recorder struct {
	queryID string
	now     func() time.Time

	mu      sync.Mutex
	events  []Event
	closed  bool
	changed chan struct{} // closed and replaced on every append or Close
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates an empty recorder for the given query.
func NewRecorder(queryID string, opts ...Option) *Recorder {
	r := &Recorder{
		queryID: queryID,
		now:     time.Now,
		changed: make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// QueryID returns the query the recorder belongs to.
func (r *Recorder) QueryID() string {
	return r.queryID
}

// Record appends e, assigning its sequence number, query id and timestamp.
// Records after Close are dropped and reported as false.
func (r *Recorder) Record(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	e.Seq = len(r.events)
	e.QueryID = r.queryID
	e.At = r.now()
	e.Order = slices.Clone(e.Order)
	r.events = append(r.events, e)
	r.broadcast()
	return true
}

// Close marks the trace complete. Streams drain and end after Close.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.broadcast()
}

// Len returns the number of events recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Trace returns a snapshot of the events recorded so far.
func (r *Recorder) Trace() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Trace, len(r.events))
	copy(out, r.events)
	return out
}

// Stream replays every event from the start and then follows new ones
// until the recorder is closed or ctx is done. The channel is closed when
// the stream ends.
func (r *Recorder) Stream(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		next := 0
		for {
			r.mu.Lock()
			pending := r.events[next:len(r.events):len(r.events)]
			closed := r.closed
			changed := r.changed
			r.mu.Unlock()

			for _, e := range pending {
				select {
				case out <- e:
					next++
				case <-ctx.Done():
					return
				}
			}
			if len(pending) > 0 {
				continue
			}
			if closed {
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// broadcast wakes every waiting stream. Callers hold r.mu.
func (r *Recorder) broadcast() {
	close(r.changed)
	r.changed = make(chan struct{})
}
