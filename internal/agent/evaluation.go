package agent

import (
	"context"

	"github.com/MikeSquared-Agency/Concierge/internal/trace"
)

// Evaluation is one query in flight.
type Evaluation struct {
	id        string
	requestID string
	rec       *trace.Recorder
	done      chan struct{}

	// set before done is closed
	result *Recommendation
	err    error
}

func (e *Evaluation) QueryID() string {
	return e.id
}

// Events streams the trace from the first event and ends when the
// evaluation finishes or ctx is done.
func (e *Evaluation) Events(ctx context.Context) <-chan trace.Event {
	return e.rec.Stream(ctx)
}

// Done is closed once Wait would not block.
func (e *Evaluation) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the evaluation finishes. On error the result is nil;
// partial traces are not returned.
func (e *Evaluation) Wait() (*Recommendation, error) {
	<-e.done
	return e.result, e.err
}
